package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"returnremind/internal/service/reminder/domain"
)

// MemoryStore 同时实现 PurchaseRepository 和 NotificationRepository，
// 用于 storage=memory 部署和测试。读写都返回副本，调用方无法修改内部状态。
type MemoryStore struct {
	mu            sync.RWMutex
	purchases     map[string]*domain.Purchase
	notifications map[string]*domain.Notification
	byType        map[string]map[domain.NotificationType]string // purchaseID -> type -> notificationID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		purchases:     make(map[string]*domain.Purchase),
		notifications: make(map[string]*domain.Notification),
		byType:        make(map[string]map[domain.NotificationType]string),
	}
}

var (
	_ domain.PurchaseRepository     = (*MemoryStore)(nil)
	_ domain.NotificationRepository = (*MemoryStore)(nil)
)

func (s *MemoryStore) Create(_ context.Context, p *domain.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.purchases[p.ID] = &cp
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, ownerID, id string) (*domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.purchases[id]
	if !ok || p.OwnerID != ownerID {
		return nil, domain.ErrPurchaseNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListActive(_ context.Context, ownerID string, asOf time.Time) ([]*domain.Purchase, error) {
	out := s.filterPurchases(func(p *domain.Purchase) bool {
		return p.OwnerID == ownerID && p.IsActive(asOf)
	})
	domain.SortActive(out)
	return out, nil
}

func (s *MemoryStore) ListHistory(_ context.Context, ownerID string, asOf time.Time) ([]*domain.Purchase, error) {
	out := s.filterPurchases(func(p *domain.Purchase) bool {
		return p.OwnerID == ownerID && !p.IsActive(asOf)
	})
	domain.SortHistory(out)
	return out, nil
}

func (s *MemoryStore) ListUnscheduled(_ context.Context, limit int) ([]*domain.Purchase, error) {
	out := s.filterPurchases(func(p *domain.Purchase) bool { return !p.RemindersScheduled })
	// 与 GORM 实现一致：按创建时间升序
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) filterPurchases(keep func(*domain.Purchase) bool) []*domain.Purchase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Purchase, 0)
	for _, p := range s.purchases {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out
}

func (s *MemoryStore) SaveSchedule(ctx context.Context, purchaseID string, planned []*domain.Notification) ([]*domain.Notification, error) {
	s.mu.Lock()
	types, ok := s.byType[purchaseID]
	if !ok {
		types = make(map[domain.NotificationType]string)
		s.byType[purchaseID] = types
	}
	for _, n := range planned {
		if _, exists := types[n.Type]; exists {
			continue
		}
		cp := *n
		cp.Purchase = nil
		s.notifications[n.ID] = &cp
		types[n.Type] = n.ID
	}
	if p, ok := s.purchases[purchaseID]; ok {
		p.RemindersScheduled = true
	}
	s.mu.Unlock()

	return s.ListByPurchase(ctx, purchaseID)
}

func (s *MemoryStore) ListByPurchase(_ context.Context, purchaseID string) ([]*domain.Notification, error) {
	return s.filterNotifications(func(n *domain.Notification) bool {
		return n.PurchaseID == purchaseID
	}, 0), nil
}

func (s *MemoryStore) ListPending(_ context.Context, ownerID string, after, until time.Time) ([]*domain.Notification, error) {
	return s.filterNotifications(func(n *domain.Notification) bool {
		if n.OwnerID != ownerID || n.FiredAt != nil || !n.ScheduledFor.After(after) {
			return false
		}
		return until.IsZero() || !n.ScheduledFor.After(until)
	}, 0), nil
}

func (s *MemoryStore) ListDue(_ context.Context, asOf time.Time, limit int) ([]*domain.Notification, error) {
	return s.filterNotifications(func(n *domain.Notification) bool {
		return n.IsDue(asOf)
	}, limit), nil
}

func (s *MemoryStore) MarkFired(_ context.Context, id string, firedAt time.Time, skipped bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.FiredAt != nil {
		return false, nil
	}
	t := firedAt
	n.FiredAt = &t
	n.Skipped = skipped
	return true, nil
}

// filterNotifications 返回排序后的副本并附带所属购买
func (s *MemoryStore) filterNotifications(keep func(*domain.Notification) bool, limit int) []*domain.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Notification, 0)
	for _, n := range s.notifications {
		if !keep(n) {
			continue
		}
		cp := *n
		if n.FiredAt != nil {
			t := *n.FiredAt
			cp.FiredAt = &t
		}
		if p, ok := s.purchases[n.PurchaseID]; ok {
			pc := *p
			cp.Purchase = &pc
		}
		out = append(out, &cp)
	}
	domain.SortBySchedule(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
