package captcha

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeService(t *testing.T, pollsUntilReady int, answer string) (*httptest.Server, *int) {
	polls := new(int)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/in.php":
			if err := r.ParseForm(); err != nil {
				t.Error(err)
				return
			}
			if r.FormValue("method") != "userrecaptcha" {
				t.Errorf("unexpected method %q", r.FormValue("method"))
			}
			fmt.Fprint(w, `{"status":1,"request":"job42"}`)
		case "/res.php":
			if r.URL.Query().Get("id") != "job42" {
				t.Errorf("unexpected job id %q", r.URL.Query().Get("id"))
			}
			*polls++
			if *polls < pollsUntilReady {
				fmt.Fprint(w, `{"status":0,"request":"CAPCHA_NOT_READY"}`)
				return
			}
			fmt.Fprint(w, answer)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	return server, polls
}

func TestTwoCaptchaSolve(t *testing.T) {
	server, polls := fakeService(t, 3, `{"status":1,"request":"token-abc"}`)
	defer server.Close()

	solver := NewTwoCaptcha(TwoCaptchaConfig{
		ApiKey:         "key",
		BaseUrl:        server.URL,
		PollIntervalMs: 1,
	})
	result, err := solver.Solve(context.Background(), Challenge{
		SiteKey: "sitekey123",
		PageURL: "https://portal.example.com/Search.aspx",
	})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "token-abc", result.Token)
	require.Equal(t, 3, *polls)
}

func TestTwoCaptchaServiceErrorIsTerminal(t *testing.T) {
	server, _ := fakeService(t, 1, `{"status":0,"request":"ERROR_CAPTCHA_UNSOLVABLE"}`)
	defer server.Close()

	solver := NewTwoCaptcha(TwoCaptchaConfig{
		ApiKey:         "key",
		BaseUrl:        server.URL,
		PollIntervalMs: 1,
	})
	_, err := solver.Solve(context.Background(), Challenge{SiteKey: "k", PageURL: "u"})
	require.ErrorIs(t, err, ErrServiceFailure)
}

func TestTwoCaptchaSubmitRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":0,"request":"ERROR_KEY_DOES_NOT_EXIST"}`)
	}))
	defer server.Close()

	solver := NewTwoCaptcha(TwoCaptchaConfig{ApiKey: "bogus", BaseUrl: server.URL})
	_, err := solver.Solve(context.Background(), Challenge{SiteKey: "k", PageURL: "u"})
	require.ErrorIs(t, err, ErrServiceFailure)
}
