package sessionstorage

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cccteam/accessgate/sessioninfo"
	"github.com/cccteam/ccc"
	"github.com/cccteam/logger"
	"github.com/go-playground/errors/v5"
)

// Keys used in the durable mirror.
const (
	KeyAccessToken = "vm_access_token"
	KeyUserData    = "vm_user_data"
	KeyIdentity    = "vm_identity"
)

// Keys lists every key written to the mirror.
var Keys = []string{KeyAccessToken, KeyUserData, KeyIdentity}

// Mirrored keeps the session in memory and mirrors every change to a KV. The mirror is read
// once, the first time the session is requested.
type Mirrored struct {
	kv KV

	mu     sync.RWMutex
	loaded bool
	sess   *sessioninfo.Session
}

// New returns a Store mirrored to kv.
func New(kv KV) *Mirrored {
	return &Mirrored{kv: kv}
}

// Get returns a copy of the current session, or nil if there is none.
func (m *Mirrored) Get(ctx context.Context) (*sessioninfo.Session, error) {
	m.mu.RLock()
	if m.loaded {
		defer m.mu.RUnlock()

		return m.sess.Clone(), nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return m.sess.Clone(), nil
	}

	sess, err := m.restore(ctx)
	if err != nil {
		return nil, err
	}
	m.sess = sess
	m.loaded = true

	return m.sess.Clone(), nil
}

// Reload reads the mirror again and returns a copy of the session it holds.
func (m *Mirrored) Reload(ctx context.Context) (*sessioninfo.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := m.restore(ctx)
	if err != nil {
		return nil, err
	}
	m.sess = sess
	m.loaded = true

	return m.sess.Clone(), nil
}

// Set replaces the current session.
func (m *Mirrored) Set(ctx context.Context, sess *sessioninfo.Session) error {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	if !sess.Authenticated() {
		return errors.New("session has no record")
	}

	values, err := encode(sess)
	if err != nil {
		return errors.Wrap(err, "encode()")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.kv.Save(ctx, values); err != nil {
		return errors.Wrap(err, "KV.Save()")
	}
	m.sess = sess.Clone()
	m.loaded = true

	return nil
}

// Clear removes the session and every mirrored key.
func (m *Mirrored) Clear(ctx context.Context) error {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.kv.Delete(ctx, Keys...); err != nil {
		return errors.Wrap(err, "KV.Delete()")
	}
	m.sess = nil
	m.loaded = true

	return nil
}

func (m *Mirrored) restore(ctx context.Context) (*sessioninfo.Session, error) {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	values, err := m.kv.Load(ctx, Keys...)
	if err != nil {
		return nil, errors.Wrap(err, "KV.Load()")
	}

	sess, err := decode(values)
	if err != nil {
		// A mirror that can not be read is treated as signed out.
		logger.FromCtx(ctx).Error(errors.Wrap(err, "decode()"))

		return nil, nil
	}

	return sess, nil
}

func encode(sess *sessioninfo.Session) (map[string]string, error) {
	info, err := json.Marshal(sess.Info)
	if err != nil {
		return nil, errors.Wrap(err, "json.Marshal()")
	}

	values := map[string]string{
		KeyAccessToken: sess.Token,
		KeyUserData:    string(info),
		KeyIdentity:    "",
	}

	if sess.Identity != nil {
		id, err := json.Marshal(sess.Identity)
		if err != nil {
			return nil, errors.Wrap(err, "json.Marshal()")
		}
		values[KeyIdentity] = string(id)
	}

	return values, nil
}

func decode(values map[string]string) (*sessioninfo.Session, error) {
	token, userData := values[KeyAccessToken], values[KeyUserData]
	if token == "" || userData == "" {
		return nil, nil
	}

	sess := &sessioninfo.Session{Token: token, Info: &sessioninfo.SessionInfo{}}
	if err := json.Unmarshal([]byte(userData), sess.Info); err != nil {
		return nil, errors.Wrapf(err, "json.Unmarshal(): %s", KeyUserData)
	}

	if raw := values[KeyIdentity]; raw != "" {
		sess.Identity = &sessioninfo.Identity{}
		if err := json.Unmarshal([]byte(raw), sess.Identity); err != nil {
			return nil, errors.Wrapf(err, "json.Unmarshal(): %s", KeyIdentity)
		}
	}

	return sess, nil
}
