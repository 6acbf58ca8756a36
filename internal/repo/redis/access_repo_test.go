package redis

import (
	"context"
	"testing"
	"time"

	"github.com/zhangqi6627/tgchatbot/internal/domain/enums"
)

func TestAccessRepoVerificationLifecycle(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewAccessRepo(client)
	ctx := context.Background()

	status, err := repo.Status(ctx, 7)
	if err != nil {
		t.Fatalf("initial status: %v", err)
	}
	if status != enums.VerificationNone {
		t.Fatalf("unexpected initial status: %s", status)
	}

	if err := repo.MarkVerified(ctx, 7, time.Hour); err != nil {
		t.Fatalf("mark verified: %v", err)
	}
	status, err = repo.Status(ctx, 7)
	if err != nil {
		t.Fatalf("status after verification: %v", err)
	}
	if status != enums.VerificationTemporary {
		t.Fatalf("unexpected status after verification: %s", status)
	}

	// Temporary verification lapses with its TTL.
	mr.FastForward(2 * time.Hour)
	status, err = repo.Status(ctx, 7)
	if err != nil {
		t.Fatalf("status after expiry: %v", err)
	}
	if status != enums.VerificationNone {
		t.Fatalf("verification should have lapsed, got %s", status)
	}
}

func TestAccessRepoTrustNeverExpires(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewAccessRepo(client)
	ctx := context.Background()

	if err := repo.MarkTrusted(ctx, 7); err != nil {
		t.Fatalf("mark trusted: %v", err)
	}

	mr.FastForward(365 * 24 * time.Hour)

	status, err := repo.Status(ctx, 7)
	if err != nil {
		t.Fatalf("status after a year: %v", err)
	}
	if status != enums.VerificationTrusted {
		t.Fatalf("trust must not expire, got %s", status)
	}

	if err := repo.ResetVerification(ctx, 7); err != nil {
		t.Fatalf("reset verification: %v", err)
	}
	status, err = repo.Status(ctx, 7)
	if err != nil {
		t.Fatalf("status after reset: %v", err)
	}
	if status != enums.VerificationNone {
		t.Fatalf("reset should clear trust, got %s", status)
	}
}

func TestAccessRepoBanFlag(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewAccessRepo(client)
	ctx := context.Background()

	banned, err := repo.IsBanned(ctx, 7)
	if err != nil {
		t.Fatalf("initial ban flag: %v", err)
	}
	if banned {
		t.Fatalf("fresh user must not be banned")
	}

	if err := repo.Ban(ctx, 7); err != nil {
		t.Fatalf("ban: %v", err)
	}
	banned, err = repo.IsBanned(ctx, 7)
	if err != nil {
		t.Fatalf("ban flag after ban: %v", err)
	}
	if !banned {
		t.Fatalf("user should be banned")
	}

	if err := repo.Unban(ctx, 7); err != nil {
		t.Fatalf("unban: %v", err)
	}
	banned, err = repo.IsBanned(ctx, 7)
	if err != nil {
		t.Fatalf("ban flag after unban: %v", err)
	}
	if banned {
		t.Fatalf("user should be unbanned")
	}
}
