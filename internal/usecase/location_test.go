package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ratmeow/weather-tracker/internal/model"
)

// stubSanitizer は決まった入力だけをマークアップ除去後の名前に置き換える。
type stubSanitizer struct{}

func (stubSanitizer) SanitizeName(name string) string {
	if name == "<b></b>" {
		return ""
	}
	if name == "<b>Moscow</b>" {
		return "Moscow"
	}
	return name
}

func savedLocations(t *testing.T, f *fixture, sessionID string) []model.LocationWeather {
	t.Helper()
	got, err := NewGetUserLocations(f.store, f.sessions, f.weather, 1).Execute(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("GetUserLocations: %v", err)
	}
	return got
}

// --- SearchLocation ---

func TestSearchLocation_DelegatesToProvider(t *testing.T) {
	want := []model.LocationCandidate{{Name: "Moscow"}}
	var gotName string
	client := &mockWeatherClient{
		searchFn: func(ctx context.Context, name string) ([]model.LocationCandidate, error) {
			gotName = name
			return want, nil
		},
	}

	got, err := NewSearchLocation(client).Execute(context.Background(), "Moscow")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotName != "Moscow" {
		t.Errorf("name = %s, want Moscow", gotName)
	}
	if len(got) != 1 || got[0].Name != "Moscow" {
		t.Errorf("got = %+v, want %+v", got, want)
	}
}

func TestSearchLocation_ProviderError(t *testing.T) {
	client := &mockWeatherClient{
		searchFn: func(context.Context, string) ([]model.LocationCandidate, error) {
			return nil, model.NewWeatherProviderError()
		},
	}

	_, err := NewSearchLocation(client).Execute(context.Background(), "Moscow")
	assertCode(t, err, model.ErrCodeWeatherProviderError)
}

// --- AddUserLocation ---

func TestAddUserLocation_Success(t *testing.T) {
	f := newFixture()
	sessionID := f.registerAndLogin(t, "bob")
	input := LocationInput{Name: "Moscow", Coordinates: coordinates(t, "55.7504461", "37.6174943")}

	if err := NewAddUserLocation(f.store, f.sessions, nil).Execute(context.Background(), sessionID, input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := savedLocations(t, f, sessionID)
	if len(got) != 1 || got[0].Name != "Moscow" {
		t.Fatalf("saved = %+v, want one Moscow entry", got)
	}
	if !got[0].Coordinates.Equal(input.Coordinates) {
		t.Errorf("coordinates = %s, want %s", got[0].Coordinates, input.Coordinates)
	}
}

func TestAddUserLocation_DuplicateForSameUser(t *testing.T) {
	f := newFixture()
	sessionID := f.registerAndLogin(t, "bob")
	uc := NewAddUserLocation(f.store, f.sessions, nil)
	input := LocationInput{Name: "Moscow", Coordinates: coordinates(t, "55.75", "37.61")}

	if err := uc.Execute(context.Background(), sessionID, input); err != nil {
		t.Fatalf("first add: %v", err)
	}
	// 名前が異なっても座標が同じなら同じ地点
	input.Name = "Moskva"
	err := uc.Execute(context.Background(), sessionID, input)
	assertCode(t, err, model.ErrCodeUserLocation)

	apiErr, _ := model.AsAPIError(err)
	if apiErr.Message != "User already has this Location" {
		t.Errorf("Message = %q, want domain message", apiErr.Message)
	}
}

func TestAddUserLocation_SharedCatalogAcrossUsers(t *testing.T) {
	f := newFixture()
	bob := f.registerAndLogin(t, "bob")
	alice := f.registerAndLogin(t, "alice")
	uc := NewAddUserLocation(f.store, f.sessions, nil)
	c := coordinates(t, "55.75", "37.61")

	if err := uc.Execute(context.Background(), bob, LocationInput{Name: "Moscow", Coordinates: c}); err != nil {
		t.Fatalf("bob add: %v", err)
	}
	if err := uc.Execute(context.Background(), alice, LocationInput{Name: "Moskva", Coordinates: c}); err != nil {
		t.Fatalf("alice add: %v", err)
	}

	if n := f.store.LocationCount(); n != 1 {
		t.Errorf("catalog size = %d, want 1", n)
	}
	// 先に登録された名前がカタログに残る
	if got := savedLocations(t, f, alice); len(got) != 1 || got[0].Name != "Moscow" {
		t.Errorf("alice saved = %+v, want shared Moscow entry", got)
	}
}

func TestAddUserLocation_ConcurrentCatalogInsertReusesRow(t *testing.T) {
	f := newFixture()
	bob := f.registerAndLogin(t, "bob")
	alice := f.registerAndLogin(t, "alice")
	c := coordinates(t, "59.93", "30.31")

	factory := &hookedFactory{store: f.store}
	factory.beforeLocSave = func() {
		factory.beforeLocSave = nil
		// 別リクエストが同じ座標の地点を先にコミットする
		if err := NewAddUserLocation(f.store, f.sessions, nil).Execute(context.Background(), alice, LocationInput{Name: "Saint Petersburg", Coordinates: c}); err != nil {
			t.Fatalf("competing add: %v", err)
		}
	}

	if err := NewAddUserLocation(factory, f.sessions, nil).Execute(context.Background(), bob, LocationInput{Name: "Petersburg", Coordinates: c}); err != nil {
		t.Fatalf("add after duplicate insert should reuse the catalog row: %v", err)
	}
	if n := f.store.LocationCount(); n != 1 {
		t.Errorf("catalog size = %d, want 1", n)
	}
	if got := savedLocations(t, f, bob); len(got) != 1 || got[0].Name != "Saint Petersburg" {
		t.Errorf("bob saved = %+v, want the competing row", got)
	}
}

func TestAddUserLocation_SanitizesNewCatalogNames(t *testing.T) {
	f := newFixture()
	sessionID := f.registerAndLogin(t, "bob")
	uc := NewAddUserLocation(f.store, f.sessions, stubSanitizer{})

	if err := uc.Execute(context.Background(), sessionID, LocationInput{Name: "<b>Moscow</b>", Coordinates: coordinates(t, "55.75", "37.61")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := savedLocations(t, f, sessionID); got[0].Name != "Moscow" {
		t.Errorf("Name = %q, want Moscow", got[0].Name)
	}

	err := uc.Execute(context.Background(), sessionID, LocationInput{Name: "<b></b>", Coordinates: coordinates(t, "1", "2")})
	assertCode(t, err, model.ErrCodeInvalidRequest)
	if n := f.store.LocationCount(); n != 1 {
		t.Errorf("catalog size = %d, want 1", n)
	}
}

func TestAddUserLocation_SessionErrors(t *testing.T) {
	f := newFixture()
	uc := NewAddUserLocation(f.store, f.sessions, nil)
	input := LocationInput{Name: "Moscow", Coordinates: coordinates(t, "55.75", "37.61")}

	assertCode(t, uc.Execute(context.Background(), "garbage", input), model.ErrCodeSessionNotFound)
	assertCode(t, uc.Execute(context.Background(), uuid.New().String(), input), model.ErrCodeSessionNotFound)
}

func TestAddUserLocation_UserVanished(t *testing.T) {
	f := newFixture()
	session, err := f.sessions.Create(context.Background(), uuid.New().String())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	err = NewAddUserLocation(f.store, f.sessions, nil).Execute(context.Background(), session.ID, LocationInput{Name: "Moscow", Coordinates: coordinates(t, "55.75", "37.61")})
	assertCode(t, err, model.ErrCodeUserNotFound)
	if n := f.store.LocationCount(); n != 0 {
		t.Errorf("catalog size = %d, want 0", n)
	}
}

// --- RemoveUserLocation ---

func TestRemoveUserLocation_Success(t *testing.T) {
	f := newFixture()
	sessionID := f.registerAndLogin(t, "bob")
	moscow := LocationInput{Name: "Moscow", Coordinates: coordinates(t, "55.75", "37.61")}
	paris := LocationInput{Name: "Paris", Coordinates: coordinates(t, "48.85", "2.35")}
	add := NewAddUserLocation(f.store, f.sessions, nil)
	for _, in := range []LocationInput{moscow, paris} {
		if err := add.Execute(context.Background(), sessionID, in); err != nil {
			t.Fatalf("add %s: %v", in.Name, err)
		}
	}

	// 名前は照合に使わない
	if err := NewRemoveUserLocation(f.store, f.sessions).Execute(context.Background(), sessionID, LocationInput{Name: "whatever", Coordinates: moscow.Coordinates}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := savedLocations(t, f, sessionID)
	if len(got) != 1 || got[0].Name != "Paris" {
		t.Errorf("saved = %+v, want only Paris", got)
	}
	if n := f.store.LocationCount(); n != 2 {
		t.Errorf("catalog size = %d, want 2 (catalog rows are kept)", n)
	}
}

func TestRemoveUserLocation_UnknownCoordinates(t *testing.T) {
	f := newFixture()
	sessionID := f.registerAndLogin(t, "bob")

	err := NewRemoveUserLocation(f.store, f.sessions).Execute(context.Background(), sessionID, LocationInput{Coordinates: coordinates(t, "1", "2")})
	assertCode(t, err, model.ErrCodeLocationNotFound)
}

func TestRemoveUserLocation_NotHeldByUser(t *testing.T) {
	f := newFixture()
	bob := f.registerAndLogin(t, "bob")
	alice := f.registerAndLogin(t, "alice")
	c := coordinates(t, "55.75", "37.61")
	if err := NewAddUserLocation(f.store, f.sessions, nil).Execute(context.Background(), alice, LocationInput{Name: "Moscow", Coordinates: c}); err != nil {
		t.Fatalf("alice add: %v", err)
	}

	err := NewRemoveUserLocation(f.store, f.sessions).Execute(context.Background(), bob, LocationInput{Coordinates: c})
	assertCode(t, err, model.ErrCodeUserLocation)

	if got := savedLocations(t, f, alice); len(got) != 1 {
		t.Errorf("alice saved = %d, want 1", len(got))
	}
}

// TestUserLocations_ConcurrentAddAndRemoveLastWriteWins は同じユーザーの関連を
// 2つのUnitOfWorkが同時に更新した場合の既知の制限を記録する。
// 関連は読み込んだ時点の集合で丸ごと書き戻されるため、後からコミットした側が勝ち、
// 先にコミットされた削除は失われる。
func TestUserLocations_ConcurrentAddAndRemoveLastWriteWins(t *testing.T) {
	f := newFixture()
	sessionID := f.registerAndLogin(t, "bob")
	moscow := LocationInput{Name: "Moscow", Coordinates: coordinates(t, "55.75", "37.61")}
	paris := LocationInput{Name: "Paris", Coordinates: coordinates(t, "48.85", "2.35")}
	if err := NewAddUserLocation(f.store, f.sessions, nil).Execute(context.Background(), sessionID, moscow); err != nil {
		t.Fatalf("add moscow: %v", err)
	}

	factory := &hookedFactory{store: f.store}
	factory.beforeUserSave = func() {
		factory.beforeUserSave = nil
		// Parisの追加がユーザーを読み込んだ後、別リクエストがMoscowを削除してコミットする
		if err := NewRemoveUserLocation(f.store, f.sessions).Execute(context.Background(), sessionID, moscow); err != nil {
			t.Fatalf("competing remove: %v", err)
		}
		if got := savedLocations(t, f, sessionID); len(got) != 0 {
			t.Fatalf("after remove commit: saved = %+v, want empty", got)
		}
	}

	if err := NewAddUserLocation(factory, f.sessions, nil).Execute(context.Background(), sessionID, paris); err != nil {
		t.Fatalf("add paris: %v", err)
	}

	// 後からコミットした追加側の集合がそのまま残り、Moscowが復活する
	got := savedLocations(t, f, sessionID)
	if len(got) != 2 || got[0].Name != "Moscow" || got[1].Name != "Paris" {
		t.Errorf("saved = %+v, want [Moscow Paris] (last write wins)", got)
	}
}

// --- GetUserLocations ---

func addLocations(t *testing.T, f *fixture, sessionID string, n int) {
	t.Helper()
	add := NewAddUserLocation(f.store, f.sessions, nil)
	for i := 0; i < n; i++ {
		c := model.NewCoordinates(decimalFromInt(i), decimalFromInt(i))
		if err := add.Execute(context.Background(), sessionID, LocationInput{Name: locationName(i), Coordinates: c}); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
}

func TestGetUserLocations_EmptyCollection(t *testing.T) {
	f := newFixture()
	sessionID := f.registerAndLogin(t, "bob")

	got := savedLocations(t, f, sessionID)
	if got == nil || len(got) != 0 {
		t.Errorf("got = %v, want empty non-nil slice", got)
	}
}

func TestGetUserLocations_PreservesOrder(t *testing.T) {
	for _, concurrency := range []int{1, 3} {
		f := newFixture()
		sessionID := f.registerAndLogin(t, "bob")
		addLocations(t, f, sessionID, 6)

		var inFlight, peak int32
		f.weather.getWeatherFn = func(ctx context.Context, loc model.Location) (*model.LocationWeather, error) {
			cur := atomic.AddInt32(&inFlight, 1)
			defer atomic.AddInt32(&inFlight, -1)
			for {
				p := atomic.LoadInt32(&peak)
				if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
					break
				}
			}
			// 先頭の地点ほど遅く返す
			idx := loc.Coordinates.Latitude().IntPart()
			time.Sleep(time.Duration(6-idx) * 5 * time.Millisecond)
			return &model.LocationWeather{Name: loc.Name, Coordinates: loc.Coordinates}, nil
		}

		got, err := NewGetUserLocations(f.store, f.sessions, f.weather, concurrency).Execute(context.Background(), sessionID)
		if err != nil {
			t.Fatalf("concurrency=%d: %v", concurrency, err)
		}
		if len(got) != 6 {
			t.Fatalf("concurrency=%d: len = %d, want 6", concurrency, len(got))
		}
		for i, w := range got {
			if w.Name != locationName(i) {
				t.Errorf("concurrency=%d: got[%d] = %s, want %s", concurrency, i, w.Name, locationName(i))
			}
		}
		if p := atomic.LoadInt32(&peak); p > int32(concurrency) {
			t.Errorf("concurrency=%d: peak in-flight = %d", concurrency, p)
		}
	}
}

func TestGetUserLocations_ProviderFailureAbortsRequest(t *testing.T) {
	for _, concurrency := range []int{1, 4} {
		f := newFixture()
		sessionID := f.registerAndLogin(t, "bob")
		addLocations(t, f, sessionID, 4)

		var mu sync.Mutex
		calls := 0
		f.weather.getWeatherFn = func(ctx context.Context, loc model.Location) (*model.LocationWeather, error) {
			mu.Lock()
			calls++
			mu.Unlock()
			if loc.Name == locationName(1) {
				return nil, model.NewWeatherProviderError()
			}
			return &model.LocationWeather{Name: loc.Name}, nil
		}

		got, err := NewGetUserLocations(f.store, f.sessions, f.weather, concurrency).Execute(context.Background(), sessionID)
		assertCode(t, err, model.ErrCodeWeatherProviderError)
		if got != nil {
			t.Errorf("concurrency=%d: got = %v, want nil", concurrency, got)
		}
		if concurrency == 1 && calls != 2 {
			t.Errorf("sequential fetch should stop at the first failure: calls = %d", calls)
		}
	}
}

func TestGetUserLocations_SessionStoreFailure(t *testing.T) {
	f := newFixture()
	sessions := &mockSessionStore{
		getUserIDFn: func(context.Context, string) (string, error) {
			return "", model.NewSessionStoreError()
		},
	}

	_, err := NewGetUserLocations(f.store, sessions, f.weather, 1).Execute(context.Background(), uuid.New().String())
	assertCode(t, err, model.ErrCodeSessionStoreError)
}

func TestGetUserLocations_ContextCanceledPropagates(t *testing.T) {
	f := newFixture()
	sessionID := f.registerAndLogin(t, "bob")
	addLocations(t, f, sessionID, 2)
	f.weather.getWeatherFn = func(ctx context.Context, loc model.Location) (*model.LocationWeather, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := NewGetUserLocations(f.store, f.sessions, f.weather, 2).Execute(ctx, sessionID)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

// --- Scenario ---

func TestScenario_RegisterLoginAddListRemove(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	moscow := model.LocationCandidate{Name: "Moscow", Coordinates: coordinates(t, "55.7504461", "37.6174943")}
	f.weather.searchFn = func(context.Context, string) ([]model.LocationCandidate, error) {
		return []model.LocationCandidate{moscow}, nil
	}

	register := NewRegisterUser(f.store, f.hasher)
	if _, err := register.Execute(ctx, RegisterUserInput{Login: "bob", Password: "password_1"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := register.Execute(ctx, RegisterUserInput{Login: "bob", Password: "password_1"})
	assertCode(t, err, model.ErrCodeUserAlreadyExists)

	session, err := NewLoginUser(f.store, f.hasher, f.sessions).Execute(ctx, LoginUserInput{Login: "bob", Password: "password_1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	candidates, err := NewSearchLocation(f.weather).Execute(ctx, "Moscow")
	if err != nil || len(candidates) == 0 {
		t.Fatalf("search: candidates=%v err=%v", candidates, err)
	}

	input := LocationInput{Name: candidates[0].Name, Coordinates: candidates[0].Coordinates}
	add := NewAddUserLocation(f.store, f.sessions, nil)
	if err := add.Execute(ctx, session.ID, input); err != nil {
		t.Fatalf("add: %v", err)
	}
	assertCode(t, add.Execute(ctx, session.ID, input), model.ErrCodeUserLocation)

	list := savedLocations(t, f, session.ID)
	if len(list) != 1 || list[0].Name != "Moscow" || list[0].Temperature == nil {
		t.Fatalf("list = %+v, want one Moscow entry with temperature", list)
	}

	if err := NewRemoveUserLocation(f.store, f.sessions).Execute(ctx, session.ID, input); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if list := savedLocations(t, f, session.ID); len(list) != 0 {
		t.Errorf("list after remove = %+v, want empty", list)
	}

	if err := NewLogoutUser(f.sessions).Execute(ctx, session.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	_, err = NewGetUserLocations(f.store, f.sessions, f.weather, 1).Execute(ctx, session.ID)
	assertCode(t, err, model.ErrCodeSessionNotFound)
}
