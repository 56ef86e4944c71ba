package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/middleware"
	"storefront/internal/models"
)

// performUpdateMe exercises the pre-database part of the handler; a nil
// database is fine because rejection happens before any query.
func performUpdateMe(t *testing.T, withUser bool, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPatch, "/users/me", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	if withUser {
		c.Set(middleware.ContextUser, models.User{
			ID:   primitive.NewObjectID(),
			UID:  "subject-a",
			Name: "Aiko",
			Role: models.RoleUser,
		})
	}

	UpdateMe(nil)(c)
	return w
}

func TestUpdateMeWithoutAccountIsUnauthorized(t *testing.T) {
	w := performUpdateMe(t, false, `{"name":"Aiko K"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateMeRejectsBlankName(t *testing.T) {
	for _, body := range []string{`{}`, `{"name":""}`, `{"name":"   "}`, `not json`} {
		w := performUpdateMe(t, true, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body=%s", body)
	}
}

func TestUpdateMeIgnoresRoleField(t *testing.T) {
	// A payload smuggling a role field still fails on the missing name; the
	// request type has no role to bind in the first place.
	w := performUpdateMe(t, true, `{"role":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
