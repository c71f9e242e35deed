package services

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/lkataba/community-backend/internal/config"
)

func TestVerifyConsole(t *testing.T) {
	svc := NewAuthService(config.AdminConfig{ConsoleSecret: "hunter2"})

	if err := svc.VerifyConsole("hunter2"); err != nil {
		t.Fatalf("correct password: %v", err)
	}
	if err := svc.VerifyConsole("wrong"); !errors.Is(err, ErrBadPassword) {
		t.Fatalf("wrong password err = %v", err)
	}

	unset := NewAuthService(config.AdminConfig{})
	if err := unset.VerifyConsole("anything"); !errors.Is(err, ErrSecretUnset) {
		t.Fatalf("unset secret err = %v", err)
	}
}

func TestVerifyConsoleBcrypt(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	svc := NewAuthService(config.AdminConfig{ConsoleSecret: string(hash)})

	if err := svc.VerifyConsole("hunter2"); err != nil {
		t.Fatalf("bcrypt match: %v", err)
	}
	if err := svc.VerifyConsole("wrong"); !errors.Is(err, ErrBadPassword) {
		t.Fatalf("bcrypt mismatch err = %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc := NewAuthService(config.AdminConfig{Username: "admin", Password: "secret"})

	token, err := svc.Login("admin", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if len(token) != 64 {
		t.Fatalf("token length = %d, want 64 hex chars", len(token))
	}

	again, err := svc.Login("admin", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if again == token {
		t.Fatal("tokens must be unique per login")
	}

	if _, err := svc.Login("admin", "nope"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("bad password err = %v", err)
	}
	if _, err := svc.Login("root", "secret"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("bad username err = %v", err)
	}

	unset := NewAuthService(config.AdminConfig{})
	if _, err := unset.Login("admin", "secret"); !errors.Is(err, ErrSecretUnset) {
		t.Fatalf("unset creds err = %v", err)
	}
}
