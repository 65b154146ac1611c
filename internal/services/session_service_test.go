package services

import (
	"errors"
	"testing"
	"time"
)

func TestSessionManager_RoundTrip(t *testing.T) {
	manager := NewSessionManager("secret", time.Hour)

	token, err := manager.Issue("acc-42")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	accountID, err := manager.Parse(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if accountID != "acc-42" {
		t.Errorf("expected acc-42, got %q", accountID)
	}
}

func TestSessionManager_Rejects(t *testing.T) {
	manager := NewSessionManager("secret", time.Hour)

	t.Run("garbage token", func(t *testing.T) {
		if _, err := manager.Parse("not-a-token"); !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewSessionManager("other-secret", time.Hour)
		token, _ := other.Issue("acc-1")
		if _, err := manager.Parse(token); !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		expired := NewSessionManager("secret", -time.Minute)
		token, _ := expired.Issue("acc-1")
		if _, err := manager.Parse(token); !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("expected ErrUnauthenticated, got %v", err)
		}
	})
}
