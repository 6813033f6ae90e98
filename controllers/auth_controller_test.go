package controllers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsdesk/newsdesk/models"
)

func TestRegister(t *testing.T) {
	db := setupTestDB(t)
	r := setupTestRouter(t, db)

	valid := map[string]string{
		"name":     "Jane Doe",
		"email":    "jane@example.com",
		"password": "Str0ng$Pass",
		"role":     "author",
	}

	t.Run("creates user and returns token", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/api/v1/auth/register", "", valid)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		data := decodeData(t, w)
		assert.NotEmpty(t, data["token"])

		var user models.User
		require.NoError(t, db.Where("email = ?", "jane@example.com").First(&user).Error)
		assert.Equal(t, "author", user.Role)
		assert.NotEqual(t, "Str0ng$Pass", user.PasswordHash)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/api/v1/auth/register", "", valid)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unique index violation on create conflicts too", func(t *testing.T) {
		// A soft-deleted account is invisible to the lookup but still holds
		// the email in the unique index, so the insert itself collides. The
		// same path covers a register racing past the lookup.
		user := createUser(t, db, "Old Account", "ghost@example.com", models.RoleReader)
		require.NoError(t, db.Delete(&user).Error)

		body := map[string]string{}
		for k, v := range valid {
			body[k] = v
		}
		body["email"] = "ghost@example.com"
		w := doJSON(r, http.MethodPost, "/api/v1/auth/register", "", body)
		assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		cases := []struct {
			name     string
			mutate   func(m map[string]string)
			wantCode int
		}{
			{"name with digits", func(m map[string]string) { m["name"] = "Jane 2" }, http.StatusBadRequest},
			{"weak password", func(m map[string]string) { m["password"] = "password" }, http.StatusBadRequest},
			{"short password", func(m map[string]string) { m["password"] = "Aa1$" }, http.StatusBadRequest},
			{"bad role", func(m map[string]string) { m["role"] = "admin" }, http.StatusBadRequest},
			{"bad email", func(m map[string]string) { m["email"] = "not-an-email" }, http.StatusBadRequest},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				body := map[string]string{}
				for k, v := range valid {
					body[k] = v
				}
				body["email"] = "other@example.com"
				tc.mutate(body)
				w := doJSON(r, http.MethodPost, "/api/v1/auth/register", "", body)
				assert.Equal(t, tc.wantCode, w.Code, w.Body.String())
			})
		}
	})
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	r := setupTestRouter(t, db)
	createUser(t, db, "Jane Doe", "jane@example.com", models.RoleReader)

	t.Run("valid credentials", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email":    "jane@example.com",
			"password": "Sup3r$ecret",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.NotEmpty(t, decodeData(t, w)["token"])
	})

	t.Run("wrong password", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email":    "jane@example.com",
			"password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown email gets the same error", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email":    "nobody@example.com",
			"password": "Sup3r$ecret",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestLogout(t *testing.T) {
	db := setupTestDB(t)
	r := setupTestRouter(t, db)
	user := createUser(t, db, "Jane Doe", "jane@example.com", models.RoleReader)

	w := doJSON(r, http.MethodPost, "/api/v1/auth/logout", tokenFor(t, user), nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(r, http.MethodPost, "/api/v1/auth/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
