package request_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opencode-ai/hostbridge/internal/event"
	"github.com/opencode-ai/hostbridge/internal/hostsim"
	"github.com/opencode-ai/hostbridge/internal/request"
	"github.com/opencode-ai/hostbridge/internal/storage"
	"github.com/opencode-ai/hostbridge/internal/task"
	"github.com/opencode-ai/hostbridge/internal/transport"
	"github.com/opencode-ai/hostbridge/pkg/types"
)

var _ = Describe("Exchange against the host emulator", func() {
	var (
		bus    *event.Bus
		host   *hostsim.Host
		engine *request.Engine
	)

	BeforeEach(func() {
		bus = event.NewBus()
		host = hostsim.New(storage.New(GinkgoT().TempDir()), bus.Publish,
			hostsim.WithTheme(map[string]string{"bg_color": "#17212b"}),
			hostsim.WithCustomMethod("getRequestedContact", func(ctx context.Context, params map[string]any) (any, error) {
				return "contact=+100", nil
			}),
		)
		engine = request.New(bus, transport.NewLoopback(host), request.WithTimeout(time.Second))
	})

	AfterEach(func() {
		Expect(bus.Close()).To(Succeed())
	})

	Context("when the host answers synchronously while the command is sent", func() {
		It("captures the reply", func() {
			var theme event.ThemeChangedData
			err := engine.DoInto(ctx, types.MethodRequestTheme, nil, event.ThemeChanged, request.Options{}, &theme)

			Expect(err).NotTo(HaveOccurred())
			Expect(theme.ThemeParams).To(HaveKeyWithValue("bg_color", "#17212b"))
			Expect(bus.SubscriberCount(event.ThemeChanged)).To(BeZero())
		})

		It("correlates on req_id with a predicate", func() {
			params := types.InvokeCustomMethodParams{ReqID: "abc", Method: "getRequestedContact", Params: map[string]any{}}
			var reply event.CustomMethodInvokedData
			err := engine.DoInto(ctx, types.MethodInvokeCustomMethod, params, event.CustomMethodInvoked, request.Options{
				Capture: func(ev event.Event) bool {
					var p event.CustomMethodInvokedData
					return ev.Decode(&p) == nil && p.ReqID == "abc"
				},
			}, &reply)

			Expect(err).NotTo(HaveOccurred())
			Expect(reply.Result).To(Equal("contact=+100"))
		})
	})

	Context("when several events are tracked", func() {
		It("reports which one answered", func() {
			ev, err := engine.DoMany(ctx, types.MethodSecureStorageGet,
				types.SecureStorageParams{ReqID: "r1", Key: ""},
				[]event.Name{event.SecureStorageFailed, event.SecureStorageKeyRecv}, request.Options{})

			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Name).To(Equal(event.SecureStorageFailed))
			Expect(bus.SubscriberCount(event.SecureStorageFailed)).To(BeZero())
			Expect(bus.SubscriberCount(event.SecureStorageKeyRecv)).To(BeZero())
		})
	})

	Context("when the host never answers", func() {
		It("times out and removes its listeners", func() {
			out := engine.Exchange(ctx, "web_app_ready", nil, []event.Name{event.ViewportChanged}, request.Options{Timeout: 20 * time.Millisecond})

			Expect(out.State).To(Equal(request.Cancelled))
			Expect(task.IsTimeout(out.Err)).To(BeTrue())
			Expect(host.Handled("web_app_ready")).To(Equal(1))
			Expect(bus.SubscriberCount(event.ViewportChanged)).To(BeZero())
		})

		It("is cancelled with the abort reason", func() {
			cctx, cancel := context.WithCancelCause(ctx)
			reason := errors.New("user left")
			time.AfterFunc(20*time.Millisecond, func() { cancel(reason) })

			out := engine.Exchange(cctx, "web_app_ready", nil, []event.Name{event.ViewportChanged}, request.Options{})

			Expect(out.State).To(Equal(request.Cancelled))
			Expect(out.Err).To(MatchError(reason))
			Expect(bus.SubscriberCount(event.ViewportChanged)).To(BeZero())
		})
	})

	Context("when the command cannot be delivered", func() {
		It("rejects with a send error and never waits", func() {
			start := time.Now()
			_, err := engine.Do(ctx, types.MethodOpenPopup, make(chan int), event.PopupClosed, request.Options{})

			Expect(request.IsSendError(err)).To(BeTrue())
			Expect(time.Since(start)).To(BeNumerically("<", 500*time.Millisecond))
			Expect(bus.SubscriberCount(event.PopupClosed)).To(BeZero())
		})
	})

	Context("when the host publishes later", func() {
		It("captures an event published after Send returned", func() {
			silent := transport.SenderFunc(func(context.Context, string, any) error {
				go func() {
					defer GinkgoRecover()
					time.Sleep(10 * time.Millisecond)
					Expect(host.Emit(event.VisibilityChanged, event.VisibilityChangedData{IsVisible: true})).To(Succeed())
				}()
				return nil
			})

			var data event.VisibilityChangedData
			err := engine.DoInto(ctx, "web_app_ready", nil, event.VisibilityChanged, request.Options{Sender: silent}, &data)

			Expect(err).NotTo(HaveOccurred())
			Expect(data.IsVisible).To(BeTrue())
		})
	})
})
