package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sh1zzle/activetime-project/internal"
)

type FileStorage struct {
	users          map[string]*internal.User                    // id -> User
	usersByEmail   map[string]*internal.User                    // lower(email) -> User
	sleepLogs      map[string]*internal.SleepLog                // id -> SleepLog
	userSleepIndex map[string][]*internal.SleepLog              // userID -> SleepLogs (sorted descending)
	productivity   map[string]map[string]*internal.Productivity // userID -> yyyy-mm-dd -> entry
	mu             sync.RWMutex
	usersFile      string
	sleepFile      string
	productFile    string
	saveUsersChan  chan struct{}
	saveLogsChan   chan struct{}
	saveProdChan   chan struct{}
	shutdownChan   chan struct{}
	wg             sync.WaitGroup
	saveDelay      time.Duration
	logger         internal.Logger
}

func NewFileStorage(usersFile, sleepFile, productFile string, logger internal.Logger) (*FileStorage, error) {
	s := &FileStorage{
		users:          make(map[string]*internal.User),
		usersByEmail:   make(map[string]*internal.User),
		sleepLogs:      make(map[string]*internal.SleepLog),
		userSleepIndex: make(map[string][]*internal.SleepLog),
		productivity:   make(map[string]map[string]*internal.Productivity),
		usersFile:      usersFile,
		sleepFile:      sleepFile,
		productFile:    productFile,
		saveUsersChan:  make(chan struct{}, 1),
		saveLogsChan:   make(chan struct{}, 1),
		saveProdChan:   make(chan struct{}, 1),
		shutdownChan:   make(chan struct{}),
		saveDelay:      500 * time.Millisecond,
		logger:         logger,
	}

	if err := s.loadUsers(); err != nil {
		logger.Errorf("storage: failed to load users: %v", err)
		return nil, err
	}
	if err := s.loadSleepLogs(); err != nil {
		logger.Errorf("storage: failed to load sleep logs: %v", err)
		return nil, err
	}
	if err := s.loadProductivity(); err != nil {
		logger.Errorf("storage: failed to load productivity: %v", err)
		return nil, err
	}

	s.wg.Add(3)
	go s.saveWorker("users", s.saveUsersChan, s.saveUsers)
	go s.saveWorker("sleep logs", s.saveLogsChan, s.saveSleepLogs)
	go s.saveWorker("productivity", s.saveProdChan, s.saveProductivity)

	return s, nil
}

func dayKey(t time.Time) string {
	return internal.StartOfDay(t).Format("2006-01-02")
}

// readJSON decodes path into v. A missing or empty file leaves v untouched.
func readJSON(path string, v interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

// userRecord is the on-disk user. internal.User keeps the hash out of API
// responses, so the file carries it separately.
type userRecord struct {
	*internal.User
	PasswordHash string `json:"password_hash"`
}

func (s *FileStorage) loadUsers() error {
	var records []userRecord
	if err := readJSON(s.usersFile, &records); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if r.User == nil {
			continue
		}
		u := r.User
		u.PasswordHash = r.PasswordHash
		s.users[u.ID] = u
		s.usersByEmail[strings.ToLower(u.Email)] = u
	}
	return nil
}

func (s *FileStorage) loadSleepLogs() error {
	var logs []*internal.SleepLog
	if err := readJSON(s.sleepFile, &logs); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range logs {
		s.sleepLogs[l.ID] = l
		s.userSleepIndex[l.UserID] = append(s.userSleepIndex[l.UserID], l)
	}

	// Sort each user's logs descending by StartTime
	for userID := range s.userSleepIndex {
		idx := s.userSleepIndex[userID]
		sort.Slice(idx, func(i, j int) bool {
			return idx[i].StartTime.After(idx[j].StartTime)
		})
	}
	return nil
}

func (s *FileStorage) loadProductivity() error {
	var entries []*internal.Productivity
	if err := readJSON(s.productFile, &entries); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range entries {
		if s.productivity[p.UserID] == nil {
			s.productivity[p.UserID] = make(map[string]*internal.Productivity)
		}
		s.productivity[p.UserID][dayKey(p.Date)] = p
	}
	return nil
}

func atomicWriteFileJSON(filePath string, data interface{}) error {
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tempFile := filePath + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}

	return os.Rename(tempFile, filePath)
}

func (s *FileStorage) saveUsers() error {
	s.mu.RLock()
	records := make([]userRecord, 0, len(s.users))
	for _, u := range s.users {
		records = append(records, userRecord{User: u, PasswordHash: u.PasswordHash})
	}
	s.mu.RUnlock()
	return atomicWriteFileJSON(s.usersFile, records)
}

func (s *FileStorage) saveSleepLogs() error {
	s.mu.RLock()
	logs := make([]*internal.SleepLog, 0, len(s.sleepLogs))
	for _, l := range s.sleepLogs {
		logs = append(logs, l)
	}
	s.mu.RUnlock()
	return atomicWriteFileJSON(s.sleepFile, logs)
}

func (s *FileStorage) saveProductivity() error {
	s.mu.RLock()
	entries := make([]*internal.Productivity, 0)
	for _, byDay := range s.productivity {
		for _, p := range byDay {
			entries = append(entries, p)
		}
	}
	s.mu.RUnlock()
	return atomicWriteFileJSON(s.productFile, entries)
}

// saveWorker batches save requests so bursts of writes hit disk once.
func (s *FileStorage) saveWorker(name string, signal <-chan struct{}, save func() error) {
	defer s.wg.Done()
	timer := time.NewTimer(s.saveDelay)
	defer timer.Stop()

	dirty := false
	for {
		select {
		case <-signal:
			dirty = true
			timer.Reset(s.saveDelay)
		case <-timer.C:
			if !dirty {
				continue
			}
			if err := save(); err != nil {
				s.logger.Errorf("storage: error saving %s: %v", name, err)
				continue
			}
			dirty = false
		case <-s.shutdownChan:
			return
		}
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Close stops the workers and flushes everything synchronously.
func (s *FileStorage) Close(ctx context.Context) error {
	close(s.shutdownChan)
	s.wg.Wait()

	if err := s.saveUsers(); err != nil {
		return err
	}
	if err := s.saveSleepLogs(); err != nil {
		return err
	}
	return s.saveProductivity()
}

// --- UserRepository ---
func (s *FileStorage) CreateUser(ctx context.Context, user *internal.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, ok := s.usersByEmail[key]; ok {
		return ErrDuplicate
	}
	s.users[user.ID] = user
	s.usersByEmail[key] = user
	notify(s.saveUsersChan)
	return nil
}

func (s *FileStorage) GetUserByEmail(ctx context.Context, email string) (*internal.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *FileStorage) GetUserByID(ctx context.Context, id string) (*internal.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// --- SleepLogRepository ---
func (s *FileStorage) SaveSleepLog(ctx context.Context, log *internal.SleepLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sleepLogs[log.ID] = log
	logs := s.userSleepIndex[log.UserID]
	i := sort.Search(len(logs), func(i int) bool {
		return logs[i].StartTime.Before(log.StartTime)
	})
	logs = append(logs, nil)
	copy(logs[i+1:], logs[i:])
	logs[i] = log
	s.userSleepIndex[log.UserID] = logs
	notify(s.saveLogsChan)
	return nil
}

func (s *FileStorage) FindSleepLog(ctx context.Context, userID string, start, end time.Time) (*internal.SleepLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.userSleepIndex[userID] {
		if l.StartTime.Equal(start) && l.EndTime.Equal(end) {
			cp := *l
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *FileStorage) ListSleepLogs(ctx context.Context, userID string, opts ListOptions) ([]internal.SleepLog, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []internal.SleepLog
	for _, l := range s.userSleepIndex[userID] {
		if opts.inRange(l.StartTime) {
			matched = append(matched, *l)
		}
	}
	return page(matched, opts), len(matched), nil
}

// --- ProductivityRepository ---
func (s *FileStorage) CreateProductivity(ctx context.Context, p *internal.Productivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byDay := s.productivity[p.UserID]
	if byDay == nil {
		byDay = make(map[string]*internal.Productivity)
		s.productivity[p.UserID] = byDay
	}
	key := dayKey(p.Date)
	if _, ok := byDay[key]; ok {
		return ErrDuplicate
	}
	byDay[key] = p
	notify(s.saveProdChan)
	return nil
}

func (s *FileStorage) UpdateProductivity(ctx context.Context, p *internal.Productivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byDay := s.productivity[p.UserID]
	oldKey := ""
	for k, e := range byDay {
		if e.ID == p.ID {
			oldKey = k
			break
		}
	}
	if oldKey == "" {
		return ErrNotFound
	}
	newKey := dayKey(p.Date)
	if other, ok := byDay[newKey]; ok && other.ID != p.ID {
		return ErrDuplicate
	}
	delete(byDay, oldKey)
	byDay[newKey] = p
	notify(s.saveProdChan)
	return nil
}

func (s *FileStorage) DeleteProductivity(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.productivity[userID] {
		if e.ID == id {
			delete(s.productivity[userID], k)
			notify(s.saveProdChan)
			return nil
		}
	}
	return ErrNotFound
}

func (s *FileStorage) GetProductivity(ctx context.Context, userID, id string) (*internal.Productivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.productivity[userID] {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *FileStorage) ListProductivity(ctx context.Context, userID string, opts ListOptions) ([]internal.Productivity, int, error) {
	s.mu.RLock()
	var matched []internal.Productivity
	for _, e := range s.productivity[userID] {
		if opts.inRange(e.Date) {
			matched = append(matched, *e)
		}
	}
	s.mu.RUnlock()
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Date.After(matched[j].Date)
	})
	return page(matched, opts), len(matched), nil
}

func page[T any](items []T, opts ListOptions) []T {
	if opts.Offset >= len(items) {
		return []T{}
	}
	items = items[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}

// --- Compile-time assertions ---
var _ UserRepository = (*FileStorage)(nil)
var _ SleepLogRepository = (*FileStorage)(nil)
var _ ProductivityRepository = (*FileStorage)(nil)
