package repository

import (
	"context"
	"sync"

	"github.com/ratmeow/weather-tracker/internal/model"
)

// userRecord は永続化されたユーザーの行を表す。
type userRecord struct {
	id           string
	login        string
	passwordHash string
	locationIDs  []string
}

// MemoryStore はプロセス内メモリにユーザーと地点カタログを保持するストア。
// テストおよびDBを使わないローカル実行向け。
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]*userRecord
	locations map[string]model.Location
}

// NewMemoryStore は空のMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]*userRecord),
		locations: make(map[string]model.Location),
	}
}

// Begin はUnitOfWorkを開始する。書き込みはCommitまで他のUnitOfWorkから見えない。
func (s *MemoryStore) Begin(ctx context.Context) (UnitOfWork, error) {
	return &memoryUnitOfWork{
		store:     s,
		users:     make(map[string]*userRecord),
		locations: make(map[string]model.Location),
	}, nil
}

// LocationCount はカタログ内の地点数を返す。
func (s *MemoryStore) LocationCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.locations)
}

func (s *MemoryStore) findLoginLocked(login string) *userRecord {
	for _, rec := range s.users {
		if rec.login == login {
			return rec
		}
	}
	return nil
}

func (s *MemoryStore) findCoordinatesLocked(c model.Coordinates) (model.Location, bool) {
	for _, loc := range s.locations {
		if loc.Coordinates.Equal(c) {
			return loc, true
		}
	}
	return model.Location{}, false
}

// memoryUnitOfWork は未コミットの書き込みを保持する。
type memoryUnitOfWork struct {
	store     *MemoryStore
	users     map[string]*userRecord
	locations map[string]model.Location
	done      bool
}

func (u *memoryUnitOfWork) Users() UserGateway         { return memoryUserGateway{u} }
func (u *memoryUnitOfWork) Locations() LocationGateway { return memoryLocationGateway{u} }

// Commit は保留中の書き込みをストアに反映する。
// 一意制約に違反する場合は何も反映せずmodel.ErrDuplicateKeyを返す。
func (u *memoryUnitOfWork) Commit() error {
	if u.done {
		return nil
	}
	u.done = true

	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, loc := range u.locations {
		if existing, ok := s.findCoordinatesLocked(loc.Coordinates); ok && existing.ID != loc.ID {
			return model.ErrDuplicateKey
		}
	}
	for _, rec := range u.users {
		if existing := s.findLoginLocked(rec.login); existing != nil && existing.id != rec.id {
			return model.ErrDuplicateKey
		}
	}

	for id, loc := range u.locations {
		s.locations[id] = loc
	}
	for id, rec := range u.users {
		s.users[id] = reconcile(s.users[id], rec)
	}
	return nil
}

// Rollback は保留中の書き込みを破棄する。
func (u *memoryUnitOfWork) Rollback() error {
	u.done = true
	u.users = nil
	u.locations = nil
	return nil
}

// reconcile は保存済みの関連と新しい関連IDを突き合わせる。
// 保存済みの順序を保ったまま不要なIDを除き、新しいIDを末尾に追加する。
func reconcile(stored, next *userRecord) *userRecord {
	if stored == nil {
		return next
	}
	wanted := make(map[string]struct{}, len(next.locationIDs))
	for _, id := range next.locationIDs {
		wanted[id] = struct{}{}
	}

	merged := make([]string, 0, len(next.locationIDs))
	have := make(map[string]struct{}, len(stored.locationIDs))
	for _, id := range stored.locationIDs {
		if _, ok := wanted[id]; ok {
			merged = append(merged, id)
			have[id] = struct{}{}
		}
	}
	for _, id := range next.locationIDs {
		if _, ok := have[id]; !ok {
			merged = append(merged, id)
		}
	}

	return &userRecord{
		id:           next.id,
		login:        stored.login,
		passwordHash: stored.passwordHash,
		locationIDs:  merged,
	}
}

func (u *memoryUnitOfWork) lookupUser(match func(*userRecord) bool) *userRecord {
	for _, rec := range u.users {
		if match(rec) {
			return rec
		}
	}
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	for _, rec := range u.store.users {
		if _, pending := u.users[rec.id]; pending {
			continue
		}
		if match(rec) {
			return rec
		}
	}
	return nil
}

func (u *memoryUnitOfWork) lookupLocation(id string) (model.Location, bool) {
	if loc, ok := u.locations[id]; ok {
		return loc, true
	}
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	loc, ok := u.store.locations[id]
	return loc, ok
}

func (u *memoryUnitOfWork) toUser(rec *userRecord, loadLocations bool) *model.User {
	var locations []model.Location
	if loadLocations {
		for _, id := range rec.locationIDs {
			if loc, ok := u.lookupLocation(id); ok {
				locations = append(locations, loc)
			}
		}
	}
	return model.RestoreUser(rec.id, rec.login, rec.passwordHash, locations)
}

type memoryUserGateway struct{ u *memoryUnitOfWork }

func (g memoryUserGateway) FindByLogin(ctx context.Context, login string) (*model.User, error) {
	rec := g.u.lookupUser(func(r *userRecord) bool { return r.login == login })
	if rec == nil {
		return nil, nil
	}
	return g.u.toUser(rec, false), nil
}

func (g memoryUserGateway) FindByID(ctx context.Context, id string, loadLocations bool) (*model.User, error) {
	rec := g.u.lookupUser(func(r *userRecord) bool { return r.id == id })
	if rec == nil {
		return nil, nil
	}
	return g.u.toUser(rec, loadLocations), nil
}

func (g memoryUserGateway) Save(ctx context.Context, user *model.User) error {
	if owner := g.u.lookupUser(func(r *userRecord) bool { return r.login == user.Login }); owner != nil && owner.id != user.ID {
		return model.ErrDuplicateKey
	}

	locations := user.Locations()
	ids := make([]string, len(locations))
	for i, loc := range locations {
		ids[i] = loc.ID
	}
	g.u.users[user.ID] = &userRecord{
		id:           user.ID,
		login:        user.Login,
		passwordHash: user.PasswordHash,
		locationIDs:  ids,
	}
	return nil
}

type memoryLocationGateway struct{ u *memoryUnitOfWork }

func (g memoryLocationGateway) FindByCoordinates(ctx context.Context, coordinates model.Coordinates) (*model.Location, error) {
	for _, loc := range g.u.locations {
		if loc.Coordinates.Equal(coordinates) {
			found := loc
			return &found, nil
		}
	}
	g.u.store.mu.RLock()
	defer g.u.store.mu.RUnlock()
	if loc, ok := g.u.store.findCoordinatesLocked(coordinates); ok {
		return &loc, nil
	}
	return nil, nil
}

func (g memoryLocationGateway) Save(ctx context.Context, location model.Location) error {
	existing, err := g.FindByCoordinates(ctx, location.Coordinates)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != location.ID {
		return model.ErrDuplicateKey
	}
	g.u.locations[location.ID] = location
	return nil
}

// compile-time interface check
var (
	_ UnitOfWorkFactory = (*MemoryStore)(nil)
	_ UserGateway       = memoryUserGateway{}
	_ LocationGateway   = memoryLocationGateway{}
)
