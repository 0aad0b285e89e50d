package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 5 * time.Minute

// Store persists role assignments.
type Store interface {
	RolesFor(ctx context.Context, userID string) ([]string, error)
	Grant(ctx context.Context, userID, role string) error
	Revoke(ctx context.Context, userID, role string) (bool, error)
	ListAssignments(ctx context.Context, role string) ([]UserRole, error)
}

// Service answers role membership questions, caching each user's role set in Redis.
type Service struct {
	store  Store
	cache  redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewService constructs a Service. cache may be nil.
func NewService(store Store, cache redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: cache, ttl: ttl, logger: logger}
}

// HasRole reports whether userID holds role.
func (s *Service) HasRole(ctx context.Context, userID, role string) (bool, error) {
	roles, err := s.RolesFor(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if strings.EqualFold(r, role) {
			return true, nil
		}
	}
	return false, nil
}

// RolesFor returns every role assigned to userID.
func (s *Service) RolesFor(ctx context.Context, userID string) ([]string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}
	if s.cache != nil {
		roles, err := s.cache.SMembers(ctx, cacheKey(userID)).Result()
		if err == nil && len(roles) > 0 {
			return roles, nil
		}
		if err != nil {
			s.logger.Warn("rbac cache read", slog.String("user", userID), slog.Any("error", err))
		}
	}
	roles, err := s.store.RolesFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, userID, roles)
	return roles, nil
}

// Grant assigns role to userID.
func (s *Service) Grant(ctx context.Context, userID, role string) error {
	userID, role = strings.TrimSpace(userID), strings.TrimSpace(role)
	if userID == "" || role == "" {
		return ErrInvalidAssignment
	}
	if err := s.store.Grant(ctx, userID, role); err != nil {
		return err
	}
	s.forget(ctx, userID)
	return nil
}

// Revoke removes role from userID. Returns ErrNotFound if nothing was removed.
func (s *Service) Revoke(ctx context.Context, userID, role string) error {
	userID, role = strings.TrimSpace(userID), strings.TrimSpace(role)
	if userID == "" || role == "" {
		return ErrInvalidAssignment
	}
	removed, err := s.store.Revoke(ctx, userID, role)
	if err != nil {
		return err
	}
	s.forget(ctx, userID)
	if !removed {
		return ErrNotFound
	}
	return nil
}

// ListAssignments returns assignments, optionally filtered by role.
func (s *Service) ListAssignments(ctx context.Context, role string) ([]UserRole, error) {
	return s.store.ListAssignments(ctx, strings.TrimSpace(role))
}

func (s *Service) remember(ctx context.Context, userID string, roles []string) {
	if s.cache == nil || len(roles) == 0 {
		return
	}
	members := make([]any, 0, len(roles))
	for _, r := range roles {
		members = append(members, r)
	}
	key := cacheKey(userID)
	_, err := s.cache.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.SAdd(ctx, key, members...)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		s.logger.Warn("rbac cache write", slog.String("user", userID), slog.Any("error", err))
	}
}

func (s *Service) forget(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKey(userID)).Err(); err != nil {
		s.logger.Warn("rbac cache invalidate", slog.String("user", userID), slog.Any("error", err))
	}
}

func cacheKey(userID string) string {
	return fmt.Sprintf("rbac:roles:%s", userID)
}

// PGStore implements Store on the user_roles table.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// RolesFor implements Store.
func (p *PGStore) RolesFor(ctx context.Context, userID string) ([]string, error) {
	var roles []string
	err := pgxscan.Select(ctx, p.pool, &roles, `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, userID)
	if err != nil {
		return nil, fmt.Errorf("rbac: roles for %s: %w", userID, err)
	}
	return roles, nil
}

// Grant implements Store.
func (p *PGStore) Grant(ctx context.Context, userID, role string) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO user_roles (user_id, role, created_at) VALUES ($1, $2, NOW())
ON CONFLICT (user_id, role) DO NOTHING`, userID, role)
	return err
}

// Revoke implements Store.
func (p *PGStore) Revoke(ctx context.Context, userID, role string) (bool, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role = $2`, userID, role)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListAssignments implements Store.
func (p *PGStore) ListAssignments(ctx context.Context, role string) ([]UserRole, error) {
	query := `SELECT user_id, role, created_at FROM user_roles`
	args := []any{}
	if role != "" {
		query += ` WHERE role = $1`
		args = append(args, role)
	}
	query += ` ORDER BY role, user_id`
	var out []UserRole
	if err := pgxscan.Select(ctx, p.pool, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}
