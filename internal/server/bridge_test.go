package server_test

import (
	"net/http"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opencode-ai/hostbridge/internal/cloudstorage"
	"github.com/opencode-ai/hostbridge/internal/custommethod"
	"github.com/opencode-ai/hostbridge/internal/event"
	"github.com/opencode-ai/hostbridge/internal/popup"
	"github.com/opencode-ai/hostbridge/internal/request"
	"github.com/opencode-ai/hostbridge/internal/securestorage"
	"github.com/opencode-ai/hostbridge/internal/theme"
	"github.com/opencode-ai/hostbridge/internal/transport"
	"github.com/opencode-ai/hostbridge/pkg/types"
)

var _ = Describe("Bridge over websocket", func() {
	var (
		bus    *event.Bus
		conn   *transport.HostConn
		engine *request.Engine
	)

	BeforeEach(func() {
		bus = event.NewBus()
		var err error
		conn, err = transport.Dial(ctx, bus, transport.HostConnOptions{URL: wsURL})
		Expect(err).NotTo(HaveOccurred())
		engine = request.New(bus, conn, request.WithTimeout(2*time.Second))

		Eventually(srv.ConnectionCount).Should(BeNumerically(">=", 1))
	})

	AfterEach(func() {
		Expect(conn.Close()).To(Succeed())
		Expect(bus.Close()).To(Succeed())
	})

	Describe("theme", func() {
		It("answers web_app_request_theme", func() {
			var theme event.ThemeChangedData
			err := engine.DoInto(ctx, types.MethodRequestTheme, nil, event.ThemeChanged, request.Options{}, &theme)
			Expect(err).NotTo(HaveOccurred())
			Expect(theme.ThemeParams).To(HaveKeyWithValue("text_color", "#ffffff"))
		})
	})

	Describe("popup", func() {
		It("returns the pressed button", func() {
			p := popup.New(engine, request.Options{})
			id, err := p.Open(ctx, popup.Params{
				Message: "Proceed?",
				Buttons: []types.PopupButton{{ID: "yes", Type: popup.ButtonDefault, Text: "Yes"}},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("yes"))
		})
	})

	Describe("secure storage", func() {
		var s *securestorage.Storage

		BeforeEach(func() {
			s = securestorage.New(engine, request.Options{})
			Expect(s.Clear(ctx)).To(Succeed())
		})

		It("stores, deletes and restores a key", func() {
			Expect(s.SetItem(ctx, "session", "s3cr3t")).To(Succeed())

			item, err := s.GetItem(ctx, "session")
			Expect(err).NotTo(HaveOccurred())
			Expect(item.Value).To(HaveValue(Equal("s3cr3t")))

			Expect(s.DeleteItem(ctx, "session")).To(Succeed())
			item, err = s.GetItem(ctx, "session")
			Expect(err).NotTo(HaveOccurred())
			Expect(item.Value).To(BeNil())
			Expect(item.CanRestore).To(BeTrue())

			value, err := s.RestoreItem(ctx, "session")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(HaveValue(Equal("s3cr3t")))
		})

		It("surfaces host failures", func() {
			_, err := s.GetItem(ctx, "")
			Expect(securestorage.IsMethodError(err)).To(BeTrue())
		})
	})

	Describe("cloud storage", func() {
		var s *cloudstorage.Storage

		BeforeEach(func() {
			s = cloudstorage.New(custommethod.New(engine, request.Options{}))
			keys, err := s.Keys(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.DeleteItems(ctx, keys...)).To(Succeed())
		})

		It("round-trips values through custom methods", func() {
			Expect(s.SetItem(ctx, "draft", "hello")).To(Succeed())

			values, err := s.GetItems(ctx, "draft", "other")
			Expect(err).NotTo(HaveOccurred())
			Expect(values).To(Equal(map[string]string{"draft": "hello", "other": ""}))

			keys, err := s.Keys(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(keys).To(ConsistOf("draft"))
		})

		It("reports unknown custom methods as typed errors", func() {
			_, err := custommethod.New(engine, request.Options{}).Invoke(ctx, "nope", nil)
			Expect(custommethod.IsMethodError(err)).To(BeTrue())
			Expect(err).To(MatchError(ContainSubstring("UNKNOWN_METHOD")))
		})
	})

	Describe("theme tracker", func() {
		It("follows broadcast theme changes once mounted", func() {
			th := theme.New(engine, request.Options{})
			th.Mount()
			defer th.Unmount()

			_, err := th.Request(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(th.IsDark()).To(BeTrue())

			resp, err := http.Post(ts.URL+"/event", "application/json",
				strings.NewReader(`{"eventType":"theme_changed","eventData":{"theme_params":{"bg_color":"#ffffff"}}}`))
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()

			Eventually(th.IsDark).Should(BeFalse())
		})
	})

	Describe("broadcast", func() {
		It("delivers posted events to connected clients", func() {
			events, err := bus.Stream(ctx, event.VisibilityChanged)
			Expect(err).NotTo(HaveOccurred())

			resp, err := http.Post(ts.URL+"/event", "application/json",
				strings.NewReader(`{"eventType":"visibility_changed","eventData":{"is_visible":true}}`))
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var ev event.Event
			Eventually(events).Should(Receive(&ev))
			var data event.VisibilityChangedData
			Expect(ev.Decode(&data)).To(Succeed())
			Expect(data.IsVisible).To(BeTrue())
		})
	})
})
