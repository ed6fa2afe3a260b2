package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/fernwood/rye/pkg/appcontext"
	"github.com/fernwood/rye/pkg/kafka"
	"github.com/fernwood/rye/pkg/reconcile"
	"github.com/fernwood/rye/pkg/redis"
	"github.com/fernwood/rye/pkg/tracing"
	"github.com/google/uuid"
)

// Manager owns the live editing sessions of this instance. It pairs each
// persisted-template session with a redis edit lease so two users cannot
// edit the same template concurrently, and publishes a template event after
// every fully successful save.
//
// Leaser and producer are optional; without them the manager degrades to
// plain in-process sessions (the mode the engine tests run in).
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*managed

	templates reconcile.TemplateStore
	stages    reconcile.StageStore
	syncer    *reconcile.Syncer
	leaser    *redis.Leaser
	producer  *kafka.Producer
	leaseTTL  time.Duration
	logger    ectologger.Logger
}

type managed struct {
	session *Session
	lease   *redis.Lease
}

func NewManager(templates reconcile.TemplateStore, stages reconcile.StageStore, syncer *reconcile.Syncer, leaser *redis.Leaser, producer *kafka.Producer, leaseTTL time.Duration, logger ectologger.Logger) *Manager {
	return &Manager{
		sessions:  map[string]*managed{},
		templates: templates,
		stages:    stages,
		syncer:    syncer,
		leaser:    leaser,
		producer:  producer,
		leaseTTL:  leaseTTL,
		logger:    logger,
	}
}

// Open starts a session authoring a new template for the site. There is no
// lease to take: the template does not exist yet.
func (m *Manager) Open(ctx context.Context, siteID string) (string, *Session, error) {
	ctx, span := tracing.StartSpan(ctx, "SessionManager.Open")
	defer span.End()

	sess := NewSession(siteID, m.syncer, m.logger)
	id := uuid.New().String()

	m.mu.Lock()
	m.sessions[id] = &managed{session: sess}
	m.mu.Unlock()

	m.logger.WithContext(ctx).WithFields(map[string]any{
		"session_id": id,
		"site_id":    siteID,
	}).Info("Opened new template session")

	return id, sess, nil
}

// OpenTemplate loads a persisted template into a new session, taking the
// edit lease first so nobody else can open it meanwhile.
func (m *Manager) OpenTemplate(ctx context.Context, templateID string) (string, *Session, error) {
	ctx, span := tracing.StartSpan(ctx, "SessionManager.OpenTemplate")
	defer span.End()

	var lease *redis.Lease
	if m.leaser != nil {
		var err error
		lease, err = m.leaser.Acquire(ctx, templateID, m.leaseTTL)
		if err == redis.ErrLeaseNotAcquired {
			return "", nil, httperror.NewHTTPError(http.StatusConflict, "template is being edited by someone else")
		}
		if err != nil {
			m.logger.WithContext(ctx).WithError(err).Error("Failed to acquire edit lease")
			return "", nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to acquire edit lease")
		}
	}

	sess, err := LoadSession(ctx, templateID, m.templates, m.stages, m.syncer, m.logger)
	if err != nil {
		if lease != nil {
			_ = lease.Release(ctx)
		}
		return "", nil, err
	}

	id := uuid.New().String()
	m.mu.Lock()
	m.sessions[id] = &managed{session: sess, lease: lease}
	m.mu.Unlock()

	m.logger.WithContext(ctx).WithFields(map[string]any{
		"session_id":  id,
		"template_id": templateID,
	}).Info("Opened template session")

	return id, sess, nil
}

// Get returns a live session by id.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[sessionID]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return entry.session, nil
}

// Save runs the session's save pass, extends the edit lease, and publishes
// a template event when the whole pass succeeded.
func (m *Manager) Save(ctx context.Context, sessionID string) (*reconcile.Report, error) {
	ctx, span := tracing.StartSpan(ctx, "SessionManager.Save")
	defer span.End()

	m.mu.Lock()
	entry, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "session not found")
	}

	report, err := entry.session.Save(ctx)
	if err != nil {
		return nil, err
	}

	if entry.lease != nil {
		if leaseErr := entry.lease.Extend(ctx, m.leaseTTL); leaseErr != nil {
			m.logger.WithContext(ctx).WithError(leaseErr).Warn("Failed to extend edit lease")
		}
	}

	if report.Ok() && len(report.Items) > 0 {
		m.publishSaved(ctx, entry.session)
	}

	return report, nil
}

// Close discards a session and releases its lease. Unsaved edits are lost;
// the shell is expected to have consulted IsDirty first.
func (m *Manager) Close(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	entry, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if !ok {
		return httperror.NewHTTPError(http.StatusNotFound, "session not found")
	}

	if entry.session.IsDirty() {
		m.logger.WithContext(ctx).WithField("session_id", sessionID).Warn("Closing session with unsaved edits")
	}

	if entry.lease != nil {
		if err := entry.lease.Release(ctx); err != nil {
			m.logger.WithContext(ctx).WithError(err).Warn("Failed to release edit lease")
		}
	}
	return nil
}

func (m *Manager) publishSaved(ctx context.Context, sess *Session) {
	if m.producer == nil {
		return
	}

	doc := sess.Document()
	event := &kafka.TemplateEvent{
		Type:       kafka.EventTypeTemplateSaved,
		SiteID:     doc.SiteID,
		TemplateID: doc.TemplateID,
		Name:       doc.Name,
		DayCount:   len(doc.Days),
		StageCount: doc.VisibleStageCount(),
		SavedBy:    appcontext.GetUserID(ctx),
		Timestamp:  time.Now().UTC(),
		TraceID:    tracing.GetTraceID(ctx),
		SpanID:     tracing.GetSpanID(ctx),
	}

	if err := m.producer.Publish(ctx, event); err != nil {
		// the save itself succeeded; a lost event is a warning, not a failure
		m.logger.WithContext(ctx).WithError(err).Warn("Failed to publish template saved event")
	}
}
