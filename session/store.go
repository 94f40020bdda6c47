package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// DefaultIdleTTL 是会话在无访问后保留的默认时长。
const DefaultIdleTTL = 30 * time.Minute

type entry struct {
	session Session
	used    time.Time
}

// StoreOption 配置 Store。
type StoreOption func(*Store)

// WithIdleTTL 设置闲置淘汰时长；ttl <= 0 表示永不淘汰。
func WithIdleTTL(ttl time.Duration) StoreOption {
	return func(st *Store) { st.ttl = ttl }
}

// WithClock 替换时间来源。
func WithClock(now func() time.Time) StoreOption {
	return func(st *Store) {
		if now != nil {
			st.now = now
		}
	}
}

// Store 按 ID 保存会话，供 HTTP 接口使用。并发安全。
// 超过 ttl 未被访问的会话视为不存在，并在下次 Create 时清理。
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
}

// NewStore 创建空的会话存储。
func NewStore(opts ...StoreOption) *Store {
	st := &Store{sessions: map[string]*entry{}, ttl: DefaultIdleTTL, now: time.Now}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// Create 新建一个空会话并返回其 ID。
func (st *Store) Create() (string, error) {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("生成会话 ID 失败: %w", err)
	}
	id := hex.EncodeToString(b[:])
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweep()
	st.sessions[id] = &entry{used: st.now()}
	return id, nil
}

// Get 返回会话快照。
func (st *Store) Get(id string) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	e, err := st.lookup(id)
	if err != nil {
		return Session{}, err
	}
	return e.session, nil
}

// Append 向会话追加片段并返回新的快照。
func (st *Store) Append(id, text string) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	e, err := st.lookup(id)
	if err != nil {
		return Session{}, err
	}
	e.session = e.session.Append(text)
	return e.session, nil
}

// Reset 清空会话中的片段，会话本身保留。
func (st *Store) Reset(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	e, err := st.lookup(id)
	if err != nil {
		return err
	}
	e.session = e.session.Reset()
	return nil
}

// Len 返回未过期的会话数量。
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweep()
	return len(st.sessions)
}

// lookup 要求持有锁；命中时刷新访问时间，过期的会话会被删除。
func (st *Store) lookup(id string) (*entry, error) {
	e, ok := st.sessions[id]
	if ok && st.expired(e) {
		delete(st.sessions, id)
		ok = false
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	e.used = st.now()
	return e, nil
}

func (st *Store) expired(e *entry) bool {
	return st.ttl > 0 && st.now().Sub(e.used) > st.ttl
}

func (st *Store) sweep() {
	for id, e := range st.sessions {
		if st.expired(e) {
			delete(st.sessions, id)
		}
	}
}
