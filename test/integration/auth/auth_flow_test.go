// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

//go:build integration

package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/credcore/credcore/internal/auth"
	"github.com/credcore/credcore/internal/auth/postgres"
	"github.com/credcore/credcore/internal/auth/redisstore"
	"github.com/credcore/credcore/internal/web"
)

func newHandler() http.Handler {
	users := postgres.NewUserRepository(env.pool)
	hasher := auth.NewArgon2idHasherWithParams(auth.Argon2Params{MemoryKiB: 1024, Iterations: 1, Threads: 1})
	svc, err := auth.NewAuthService(users, hasher)
	Expect(err).NotTo(HaveOccurred())
	sessions, err := auth.NewSessionManager(redisstore.New(env.redis))
	Expect(err).NotTo(HaveOccurred())
	srv, err := web.NewServer(":0", svc, sessions, users)
	Expect(err).NotTo(HaveOccurred())
	return srv.Handler()
}

func post(h http.Handler, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.DefaultCookieName {
			return c
		}
	}
	return nil
}

var _ = Describe("Auth flow", func() {
	var h http.Handler

	BeforeEach(func() {
		h = newHandler()
	})

	It("registers, resolves, and logs out a session", func() {
		reg := post(h, "/register", `{"username":"alice","password":"s3cretpass"}`)
		Expect(reg.Code).To(Equal(http.StatusOK))
		cookie := sessionCookie(reg)
		Expect(cookie).NotTo(BeNil())

		ttl := env.redis.TTL(env.ctx, redisstore.DefaultKeyPrefix+cookie.Value).Val()
		Expect(ttl).To(BeNumerically("~", auth.SessionTTL, 5e9))

		me := get(h, "/me", cookie)
		Expect(me.Code).To(Equal(http.StatusOK))
		var body struct {
			User struct {
				Username string `json:"username"`
			} `json:"user"`
		}
		Expect(json.Unmarshal(me.Body.Bytes(), &body)).To(Succeed())
		Expect(body.User.Username).To(Equal("alice"))

		out := post(h, "/logout", "", cookie)
		Expect(out.Code).To(Equal(http.StatusOK))
		Expect(get(h, "/me", cookie).Code).To(Equal(http.StatusUnauthorized))
	})

	It("logs in with the registered password only", func() {
		Expect(sessionCookie(post(h, "/register", `{"username":"bob","password":"hunter22"}`))).NotTo(BeNil())

		bad := post(h, "/login", `{"username":"bob","password":"hunter23"}`)
		Expect(bad.Code).To(Equal(http.StatusOK))
		Expect(bad.Body.String()).To(MatchJSON(`{"errors":[{"field":"password","message":"incorrect password"}]}`))
		Expect(sessionCookie(bad)).To(BeNil())

		good := post(h, "/login", `{"username":"bob","password":"hunter22"}`)
		Expect(good.Code).To(Equal(http.StatusOK))
		Expect(sessionCookie(good)).NotTo(BeNil())
	})

	It("treats usernames as case-sensitive", func() {
		Expect(sessionCookie(post(h, "/register", `{"username":"Carol","password":"s3cretpass"}`))).NotTo(BeNil())

		rec := post(h, "/login", `{"username":"carol","password":"s3cretpass"}`)
		Expect(rec.Body.String()).To(MatchJSON(`{"errors":[{"field":"username","message":"that username doesn't exist"}]}`))
	})

	It("lets exactly one concurrent registration of a name succeed", func() {
		const attempts = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
			taken     int
		)
		for range attempts {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				rec := post(h, "/register", `{"username":"dave","password":"s3cretpass"}`)
				Expect(rec.Code).To(Equal(http.StatusOK))
				mu.Lock()
				defer mu.Unlock()
				if sessionCookie(rec) != nil {
					succeeded++
				} else if strings.Contains(rec.Body.String(), auth.MsgUsernameTaken) {
					taken++
				}
			}()
		}
		wg.Wait()

		Expect(succeeded).To(Equal(1))
		Expect(taken).To(Equal(attempts - 1))
	})
})
