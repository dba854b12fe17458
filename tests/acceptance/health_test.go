//go:build acceptance

package acceptance

import (
	"net/http"
)

func (s *Suite) TestHealthEndpoint() {
	resp := s.get("/health", "")
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode, "Expected status 200")
}
