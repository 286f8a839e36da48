package usecase

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ratmeow/weather-tracker/internal/model"
	"github.com/ratmeow/weather-tracker/internal/repository"
)

// --- モック ---

// fakeHasher は平文に接頭辞を付けるだけのHasher。
type fakeHasher struct {
	hashFn func(password string) (string, error)
}

func (h *fakeHasher) Hash(password string) (string, error) {
	if h.hashFn != nil {
		return h.hashFn(password)
	}
	return "hashed:" + password, nil
}

func (h *fakeHasher) Verify(password, hash string) bool {
	return strings.TrimPrefix(hash, "hashed:") == password
}

type mockWeatherClient struct {
	searchFn     func(ctx context.Context, name string) ([]model.LocationCandidate, error)
	getWeatherFn func(ctx context.Context, location model.Location) (*model.LocationWeather, error)
}

func (m *mockWeatherClient) SearchLocation(ctx context.Context, name string) ([]model.LocationCandidate, error) {
	return m.searchFn(ctx, name)
}

func (m *mockWeatherClient) GetWeather(ctx context.Context, location model.Location) (*model.LocationWeather, error) {
	if m.getWeatherFn != nil {
		return m.getWeatherFn(ctx, location)
	}
	temp := 20.0
	return &model.LocationWeather{
		Name:        location.Name,
		Coordinates: location.Coordinates,
		Temperature: &temp,
	}, nil
}

type mockSessionStore struct {
	createFn    func(ctx context.Context, userID string) (*model.Session, error)
	getUserIDFn func(ctx context.Context, sessionID string) (string, error)
	deleteFn    func(ctx context.Context, sessionID string) error
	calls       int
}

func (m *mockSessionStore) Create(ctx context.Context, userID string) (*model.Session, error) {
	m.calls++
	return m.createFn(ctx, userID)
}

func (m *mockSessionStore) GetUserID(ctx context.Context, sessionID string) (string, error) {
	m.calls++
	return m.getUserIDFn(ctx, sessionID)
}

func (m *mockSessionStore) Delete(ctx context.Context, sessionID string) error {
	m.calls++
	return m.deleteFn(ctx, sessionID)
}

// hookedFactory はMemoryStoreの書き込み直前にフックを差し込む。
// 同時リクエストによる競合の再現に使う。
type hookedFactory struct {
	store          *repository.MemoryStore
	beforeUserSave func()
	beforeLocSave  func()
}

func (f *hookedFactory) Begin(ctx context.Context) (repository.UnitOfWork, error) {
	tx, err := f.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &hookedUnitOfWork{UnitOfWork: tx, f: f}, nil
}

type hookedUnitOfWork struct {
	repository.UnitOfWork
	f *hookedFactory
}

func (u *hookedUnitOfWork) Users() repository.UserGateway {
	return &hookedUserGateway{UserGateway: u.UnitOfWork.Users(), hook: u.f.beforeUserSave}
}

func (u *hookedUnitOfWork) Locations() repository.LocationGateway {
	return &hookedLocationGateway{LocationGateway: u.UnitOfWork.Locations(), hook: u.f.beforeLocSave}
}

type hookedUserGateway struct {
	repository.UserGateway
	hook func()
}

func (g *hookedUserGateway) Save(ctx context.Context, user *model.User) error {
	if g.hook != nil {
		g.hook()
	}
	return g.UserGateway.Save(ctx, user)
}

type hookedLocationGateway struct {
	repository.LocationGateway
	hook func()
}

func (g *hookedLocationGateway) Save(ctx context.Context, location model.Location) error {
	if g.hook != nil {
		g.hook()
	}
	return g.LocationGateway.Save(ctx, location)
}

// --- ヘルパー ---

const sessionTTL = time.Hour

type fixture struct {
	store    *repository.MemoryStore
	sessions *repository.MemorySessionStore
	hasher   *fakeHasher
	weather  *mockWeatherClient
}

func newFixture() *fixture {
	return &fixture{
		store:    repository.NewMemoryStore(),
		sessions: repository.NewMemorySessionStore(sessionTTL),
		hasher:   &fakeHasher{},
		weather:  &mockWeatherClient{},
	}
}

// registerAndLogin はユーザーを登録してセッションIDを返す。
func (f *fixture) registerAndLogin(t *testing.T, login string) string {
	t.Helper()
	ctx := context.Background()

	if _, err := NewRegisterUser(f.store, f.hasher).Execute(ctx, RegisterUserInput{Login: login, Password: "password_1"}); err != nil {
		t.Fatalf("RegisterUser(%s): %v", login, err)
	}
	session, err := NewLoginUser(f.store, f.hasher, f.sessions).Execute(ctx, LoginUserInput{Login: login, Password: "password_1"})
	if err != nil {
		t.Fatalf("LoginUser(%s): %v", login, err)
	}
	return session.ID
}

func coordinates(t *testing.T, lat, lon string) model.Coordinates {
	t.Helper()
	c, err := model.ParseCoordinates(lat, lon)
	if err != nil {
		t.Fatalf("ParseCoordinates(%s, %s): %v", lat, lon, err)
	}
	return c
}

func assertCode(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", want)
	}
	apiErr, ok := model.AsAPIError(err)
	if !ok {
		t.Fatalf("expected *model.APIError with code %s, got %v", want, err)
	}
	if apiErr.Code != want {
		t.Errorf("Code = %s, want %s (message: %s)", apiErr.Code, want, apiErr.Message)
	}
}

func decimalFromInt(i int) decimal.Decimal {
	return decimal.NewFromInt(int64(i))
}

func locationName(i int) string {
	return fmt.Sprintf("location-%d", i)
}
