//go:build acceptance

package acceptance

import (
	"context"
	"net/http"
	"sync"

	"github.com/prperemyshlev/user-service/internal/dto"
)

const password = "Password123!"

func (s *Suite) register(email string) dto.AuthResponse {
	resp := s.post("/api/v1/auth/register", dto.RegisterRequest{Email: email, Password: password}, "")
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var auth dto.AuthResponse
	s.decode(resp, &auth)
	return auth
}

func (s *Suite) TestRegister_Success() {
	resp := s.post("/api/v1/auth/register", dto.RegisterRequest{Email: "test@example.com", Password: password}, "")
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.NotEmpty(resp.Cookies(), "Should have refresh token cookie")

	var auth dto.AuthResponse
	s.decode(resp, &auth)

	s.NotEmpty(auth.AccessToken)
	s.NotEmpty(auth.RefreshToken)
	s.Equal("Bearer", auth.TokenType)
	s.Equal(900, auth.ExpiresIn)
	s.True(auth.IsNewUser)
	s.Equal("test@example.com", auth.User.Email)
	s.Equal([]string{"ROLE_USER"}, auth.User.Roles)
}

func (s *Suite) TestRegister_DuplicateEmail() {
	s.register("duplicate@example.com")

	resp := s.post("/api/v1/auth/register", dto.RegisterRequest{Email: "duplicate@example.com", Password: password}, "")
	defer resp.Body.Close()
	s.Equal(http.StatusConflict, resp.StatusCode)
}

func (s *Suite) TestRegister_ConcurrentSameEmail() {
	const attempts = 5

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := s.post("/api/v1/auth/register", dto.RegisterRequest{Email: "race@example.com", Password: password}, "")
			resp.Body.Close()
			if resp.StatusCode == http.StatusCreated {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, created)
}

func (s *Suite) TestLogin_WrongPassword() {
	s.register("login@example.com")

	resp := s.post("/api/v1/auth/login", dto.LoginRequest{Email: "login@example.com", Password: "Wrong123!"}, "")
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestRefresh_RotatesOnce() {
	auth := s.register("refresh@example.com")

	resp := s.post("/api/v1/auth/refresh", dto.RefreshRequest{RefreshToken: auth.RefreshToken}, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var rotated dto.AuthResponse
	s.decode(resp, &rotated)
	s.NotEqual(auth.RefreshToken, rotated.RefreshToken)

	resp = s.post("/api/v1/auth/refresh", dto.RefreshRequest{RefreshToken: auth.RefreshToken}, "")
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestRefresh_ConcurrentUseSucceedsOnce() {
	auth := s.register("concurrent@example.com")

	const attempts = 4
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := s.post("/api/v1/auth/refresh", dto.RefreshRequest{RefreshToken: auth.RefreshToken}, "")
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, ok)
}

func (s *Suite) TestLogout_InvalidatesRefreshToken() {
	auth := s.register("logout@example.com")

	resp := s.post("/api/v1/auth/logout", dto.RefreshRequest{RefreshToken: auth.RefreshToken}, "")
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = s.post("/api/v1/auth/refresh", dto.RefreshRequest{RefreshToken: auth.RefreshToken}, "")
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestMe_RequiresToken() {
	auth := s.register("me@example.com")

	resp := s.get("/api/v1/auth/me", auth.AccessToken)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var me dto.MeResponse
	s.decode(resp, &me)
	s.Equal("me@example.com", me.Email)

	resp = s.get("/api/v1/auth/me", "")
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestAdmin_LockRevokesAccess() {
	user := s.register("user@example.com")
	admin := s.register("admin@example.com")

	role, err := s.Repos.Role.GetByAuthority(context.Background(), "ROLE_ADMIN")
	s.Require().NoError(err)
	s.Require().NoError(s.Repos.User.AssignRole(context.Background(), admin.User.ID, role.ID))

	resp := s.post("/api/v1/auth/login", dto.LoginRequest{Email: "admin@example.com", Password: password}, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.decode(resp, &admin)

	resp = s.post("/api/v1/users/"+user.User.ID+"/lock", nil, admin.AccessToken)
	resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp = s.get("/api/v1/auth/me", user.AccessToken)
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = s.get("/api/v1/users/"+user.User.ID+"/profile", admin.AccessToken)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var profile dto.ProfileResponse
	s.decode(resp, &profile)
	s.False(profile.AccountNonLocked)
}

func (s *Suite) TestPasswordReset_UnknownEmailAccepted() {
	resp := s.post("/api/v1/auth/password/reset-request", dto.PasswordResetRequest{Email: "nobody@example.com"}, "")
	defer resp.Body.Close()
	s.Equal(http.StatusAccepted, resp.StatusCode)
}
