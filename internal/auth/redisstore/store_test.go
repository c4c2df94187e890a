// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

package redisstore_test

import (
	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/redis/go-redis/v9"

	"github.com/credcore/credcore/internal/auth"
	"github.com/credcore/credcore/internal/auth/redisstore"
)

var _ = Describe("Store", func() {
	var (
		ctx    context.Context
		mr     *miniredis.Miniredis
		client *redis.Client
		store  *redisstore.Store
		sess   *auth.Session
	)

	BeforeEach(func() {
		ctx = context.Background()
		mr = miniredis.RunT(GinkgoT())
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(client.Close)
		store = redisstore.New(client)
		sess = &auth.Session{UserID: ulid.Make(), CreatedAt: time.Now().UTC().Truncate(time.Second)}
	})

	Describe("Put", func() {
		It("writes under the sess: prefix with the given ttl", func() {
			Expect(store.Put(ctx, "tok", sess, auth.SessionTTL)).To(Succeed())

			Expect(mr.Exists("sess:tok")).To(BeTrue())
			Expect(mr.TTL("sess:tok")).To(Equal(30 * 24 * time.Hour))
		})

		It("does not persist the token inside the value", func() {
			sess.Token = "tok"
			Expect(store.Put(ctx, "tok", sess, time.Hour)).To(Succeed())

			raw, err := mr.Get("sess:tok")
			Expect(err).NotTo(HaveOccurred())
			Expect(raw).NotTo(ContainSubstring(`"tok"`))
			Expect(raw).To(ContainSubstring(sess.UserID.String()))
		})

		It("rejects a non-positive ttl", func() {
			Expect(store.Put(ctx, "tok", sess, 0)).NotTo(Succeed())
			Expect(mr.Exists("sess:tok")).To(BeFalse())
		})

		It("honours a custom prefix", func() {
			custom := redisstore.New(client, redisstore.WithKeyPrefix("custom:"))
			Expect(custom.Put(ctx, "tok", sess, time.Hour)).To(Succeed())
			Expect(mr.Exists("custom:tok")).To(BeTrue())
			Expect(custom.Key("tok")).To(Equal("custom:tok"))
		})
	})

	Describe("Get", func() {
		It("returns the stored session with its token", func() {
			Expect(store.Put(ctx, "tok", sess, time.Hour)).To(Succeed())

			got, err := store.Get(ctx, "tok")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Token).To(Equal("tok"))
			Expect(got.UserID).To(Equal(sess.UserID))
			Expect(got.CreatedAt.Equal(sess.CreatedAt)).To(BeTrue())
		})

		It("does not extend the ttl", func() {
			Expect(store.Put(ctx, "tok", sess, time.Hour)).To(Succeed())
			mr.FastForward(40 * time.Minute)

			_, err := store.Get(ctx, "tok")
			Expect(err).NotTo(HaveOccurred())
			Expect(mr.TTL("sess:tok")).To(Equal(20 * time.Minute))
		})

		It("reports missing tokens as not found", func() {
			_, err := store.Get(ctx, "missing")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("reports expired sessions as not found", func() {
			Expect(store.Put(ctx, "tok", sess, time.Hour)).To(Succeed())
			mr.FastForward(time.Hour + time.Second)

			_, err := store.Get(ctx, "tok")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("reports a corrupt value as an error other than not found", func() {
			Expect(mr.Set("sess:bad", "{not json")).To(Succeed())

			_, err := store.Get(ctx, "bad")
			Expect(err).To(HaveOccurred())
			Expect(err).NotTo(MatchError(auth.ErrNotFound))
		})

		It("reports a server failure as an error other than not found", func() {
			mr.SetError("LOADING")
			DeferCleanup(func() { mr.SetError("") })

			_, err := store.Get(ctx, "tok")
			Expect(err).To(HaveOccurred())
			Expect(err).NotTo(MatchError(auth.ErrNotFound))
		})
	})

	Describe("Delete", func() {
		It("removes the session", func() {
			Expect(store.Put(ctx, "tok", sess, time.Hour)).To(Succeed())
			Expect(store.Delete(ctx, "tok")).To(Succeed())

			_, err := store.Get(ctx, "tok")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("is idempotent", func() {
			Expect(store.Delete(ctx, "never-existed")).To(Succeed())
			Expect(store.Delete(ctx, "never-existed")).To(Succeed())
		})
	})

	Describe("with SessionManager", func() {
		It("creates, resolves and destroys a session end to end", func() {
			mgr, err := auth.NewSessionManager(store)
			Expect(err).NotTo(HaveOccurred())

			userID := ulid.Make()
			created, err := mgr.Create(ctx, userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(mr.TTL("sess:" + created.Token)).To(Equal(auth.SessionTTL))

			resolved, err := mgr.Lookup(ctx, created.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(resolved.UserID).To(Equal(userID))

			Expect(mgr.Destroy(ctx, created.Token)).To(Succeed())
			_, err = mgr.Lookup(ctx, created.Token)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})
})

var _ = Describe("Dial", func() {
	It("connects to a reachable server", func() {
		mr := miniredis.RunT(GinkgoT())
		client, err := redisstore.DialOnce(context.Background(), "redis://"+mr.Addr()+"/0")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(client.Close)
		Expect(client.Ping(context.Background()).Err()).To(Succeed())
	})

	It("rejects an invalid url", func() {
		_, err := redisstore.DialOnce(context.Background(), "http://not-redis")
		Expect(err).To(HaveOccurred())
	})

	It("fails when the server is unreachable", func() {
		mr := miniredis.RunT(GinkgoT())
		addr := mr.Addr()
		mr.Close()

		_, err := redisstore.DialOnce(context.Background(), "redis://"+addr)
		Expect(err).To(HaveOccurred())
	})
})
