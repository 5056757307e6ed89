package services

import (
	"context"

	"github.com/estatedesk/estatedesk-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type auditMetaKey struct{}

// RequestMeta carries per-request attribution for audit entries
type RequestMeta struct {
	RequestID string
	IPAddress string
	UserAgent string
}

// WithRequestMeta stamps request attribution onto the context. The request
// logger middleware calls this once per request so services never have to
// thread ip/user-agent through their signatures.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, auditMetaKey{}, meta)
}

// RequestMetaFrom extracts request attribution from the context, if present
func RequestMetaFrom(ctx context.Context) (RequestMeta, bool) {
	meta, ok := ctx.Value(auditMetaKey{}).(RequestMeta)
	return meta, ok
}

type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Log records an audit entry. Attribution comes from the request metadata on
// the context; background jobs without one get a fresh request id.
func (s *AuditService) Log(ctx context.Context, userID uint, action, entity string, entityID uint, details string) error {
	entry := &models.AuditLog{
		UserID:   userID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Details:  details,
	}

	if meta, ok := RequestMetaFrom(ctx); ok {
		entry.RequestID = meta.RequestID
		entry.IPAddress = meta.IPAddress
		entry.UserAgent = meta.UserAgent
	} else {
		entry.RequestID = uuid.NewString()
	}

	return s.db.WithContext(ctx).Create(entry).Error
}

// List retrieves audit logs, newest first. Filters narrow by entity and action.
func (s *AuditService) List(ctx context.Context, entity, action string, limit, offset int) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	db := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if entity != "" {
		db = db.Where("entity = ?", entity)
	}
	if action != "" {
		db = db.Where("action = ?", action)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	result := db.Preload("User").Order("created_at desc").Limit(limit).Offset(offset).Find(&logs)
	return logs, total, result.Error
}

// ForEntity returns the trail for one entity row, oldest first
func (s *AuditService) ForEntity(ctx context.Context, entity string, entityID uint) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := s.db.WithContext(ctx).
		Where("entity = ? AND entity_id = ?", entity, entityID).
		Order("created_at asc").
		Find(&logs).Error
	return logs, err
}
