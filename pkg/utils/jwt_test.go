package utils

import (
	"context"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	SetSecret("test-secret")

	token, err := GenerateToken("rep-7", []string{"sales"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != "rep-7" {
		t.Errorf("UserID = %s, want rep-7", claims.UserID)
	}

	SetSecret("other-secret")
	if _, err := ValidateToken(token); err == nil {
		t.Error("token signed with another secret should not validate")
	}
}

func TestExpiredToken(t *testing.T) {
	SetSecret("test-secret")
	token, _ := GenerateToken("rep-7", nil, -time.Minute)
	if _, err := ValidateToken(token); err == nil {
		t.Error("expired token should not validate")
	}
}

func TestActorID(t *testing.T) {
	if got := ActorID(context.Background()); got != SystemActor {
		t.Errorf("ActorID() = %s, want %s", got, SystemActor)
	}
	ctx := WithClaims(context.Background(), &UserClaims{UserID: "rep-1"})
	if got := ActorID(ctx); got != "rep-1" {
		t.Errorf("ActorID() = %s, want rep-1", got)
	}
}
