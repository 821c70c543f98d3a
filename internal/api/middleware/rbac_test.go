package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"travelguide.io/guestbook/internal/domain"
)

func TestRequirePermission(t *testing.T) {
	t.Parallel()

	run := func(identity *domain.Identity, required string) (int, bool) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if identity != nil {
			SetIdentity(c, *identity)
		}

		RequirePermission(required)(c)
		return w.Code, !c.IsAborted()
	}

	tests := []struct {
		name       string
		identity   *domain.Identity
		wantStatus int
		wantNext   bool
	}{
		{name: "missing identity", wantStatus: http.StatusForbidden},
		{name: "no permission", identity: &domain.Identity{ID: "u-1"}, wantStatus: http.StatusForbidden},
		{name: "exact permission", identity: &domain.Identity{ID: "u-1", Permissions: []string{domain.PermissionModerationManage}}, wantStatus: http.StatusOK, wantNext: true},
		{name: "platform admin", identity: &domain.Identity{ID: "u-1", Permissions: []string{domain.PermissionPlatformAdmin}}, wantStatus: http.StatusOK, wantNext: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			code, next := run(tc.identity, domain.PermissionModerationManage)
			if code != tc.wantStatus || next != tc.wantNext {
				t.Fatalf("status=%d next=%v, want status=%d next=%v", code, next, tc.wantStatus, tc.wantNext)
			}
		})
	}
}
