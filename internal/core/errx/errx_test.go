package errx

import (
	"errors"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestInternal(t *testing.T) {
	cause := errors.New("marshal exploded")
	appErr := Internal(cause)

	if appErr.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d, want %d", appErr.Status, http.StatusInternalServerError)
	}
	if appErr.Message != SystemErrorMessage {
		t.Errorf("Message = %q, want %q", appErr.Message, SystemErrorMessage)
	}
	if !errors.Is(appErr, cause) {
		t.Error("wrapped cause not matched by errors.Is")
	}
}

func TestWrapRedis(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{name: "missing key", err: redis.Nil, wantStatus: http.StatusNotFound, wantMessage: RedisNotFoundMessage},
		{name: "connection failure", err: errors.New("dial tcp: refused"), wantStatus: http.StatusBadGateway, wantMessage: RedisErrorMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := WrapRedis(tt.err)
			if appErr.Status != tt.wantStatus {
				t.Errorf("Status = %d, want %d", appErr.Status, tt.wantStatus)
			}
			if appErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", appErr.Message, tt.wantMessage)
			}
			if !errors.Is(appErr, tt.err) {
				t.Error("wrapped cause not matched by errors.Is")
			}
		})
	}

	if WrapRedis(nil) != nil {
		t.Error("WrapRedis(nil) != nil")
	}
}
