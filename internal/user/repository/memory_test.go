package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"authledger/internal/user/domain"
)

func newUser(id, username string) *domain.User {
	return &domain.User{ID: id, Username: username, PasswordHash: "hash", CreatedAt: time.Now().UTC()}
}

func TestMemoryRepository_CreateAndFind(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, newUser("u1", "alice")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := repo.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if got == nil || got.ID != "u1" {
		t.Fatalf("FindByUsername = %+v, want id u1", got)
	}
	byID, err := repo.GetByID(ctx, "u1")
	if err != nil || byID == nil || byID.Username != "alice" {
		t.Fatalf("GetByID = %+v, %v", byID, err)
	}
}

func TestMemoryRepository_Missing(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	if u, err := repo.FindByUsername(ctx, "nobody"); u != nil || err != nil {
		t.Errorf("FindByUsername missing = %+v, %v; want nil, nil", u, err)
	}
	if u, err := repo.GetByID(ctx, "nope"); u != nil || err != nil {
		t.Errorf("GetByID missing = %+v, %v; want nil, nil", u, err)
	}
}

func TestMemoryRepository_DuplicateUsername(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	if err := repo.Create(ctx, newUser("u1", "alice")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, newUser("u2", "alice")); !errors.Is(err, ErrDuplicateUsername) {
		t.Errorf("Create duplicate = %v, want ErrDuplicateUsername", err)
	}
}

func TestMemoryRepository_ConcurrentDuplicate(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	var created int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := repo.Create(ctx, newUser(fmt.Sprintf("u%d", i), "alice")); err == nil {
				atomic.AddInt32(&created, 1)
			}
		}(i)
	}
	wg.Wait()
	if created != 1 {
		t.Errorf("created = %d, want exactly 1", created)
	}
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	_ = repo.Create(ctx, newUser("u1", "alice"))
	got, _ := repo.FindByUsername(ctx, "alice")
	got.PasswordHash = "mutated"
	again, _ := repo.FindByUsername(ctx, "alice")
	if again.PasswordHash != "hash" {
		t.Error("caller mutation leaked into the repository")
	}
}

func TestMemoryRepository_CreateInvalid(t *testing.T) {
	repo := NewMemoryRepository()
	if err := repo.Create(context.Background(), &domain.User{ID: "u1"}); err == nil {
		t.Error("Create without username: want error")
	}
}
