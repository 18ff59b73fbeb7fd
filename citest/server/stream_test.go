package server_test

import (
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/parley-ai/parley/internal/stream"
	"github.com/parley-ai/parley/pkg/types"
)

func eventTypes(events []stream.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.EventType()
	}
	return out
}

var _ = Describe("Message Streaming", func() {
	var session *types.Session

	BeforeEach(func() {
		var err error
		session, err = client.CreateSession(ctx)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if session != nil {
			client.DeleteSession(ctx, session.ID)
		}
	})

	Describe("POST /session/{sessionID}/message", func() {
		It("should stream a complete text turn as NDJSON", func() {
			testServer.Mock.ScriptText("Hello, ", "world!")

			events, err := client.SendMessage(ctx, session.ID, "Say hello")
			Expect(err).NotTo(HaveOccurred())

			kinds := eventTypes(events)
			Expect(kinds[0]).To(Equal("assistant-message-created"))
			Expect(kinds[len(kinds)-1]).To(Equal("complete"))
			Expect(kinds).To(ContainElements("text-start", "text-delta", "text-end"))

			var text strings.Builder
			for _, e := range events {
				if delta, ok := e.(*stream.TextDelta); ok {
					text.WriteString(delta.Text)
				}
			}
			Expect(text.String()).To(Equal("Hello, world!"))
		})

		It("should persist both turns after the stream ends", func() {
			testServer.Mock.ScriptText("Persisted reply")

			_, err := client.SendMessage(ctx, session.ID, "Persist me")
			Expect(err).NotTo(HaveOccurred())

			updated, err := client.GetSession(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Messages).To(HaveLen(2))
			Expect(updated.Messages[0].Role).To(Equal("user"))
			Expect(updated.Messages[1].Role).To(Equal("assistant"))
		})

		It("should end with an error event when the provider fails", func() {
			testServer.Mock.ScriptError(errors.New("mock provider down"))

			events, err := client.SendMessage(ctx, session.ID, "Trigger failure")
			Expect(err).NotTo(HaveOccurred())
			Expect(events).NotTo(BeEmpty())

			last := events[len(events)-1]
			errEvent, ok := last.(*stream.Error)
			Expect(ok).To(BeTrue(), "last event should be an error, got %s", last.EventType())
			Expect(errEvent.Error).To(ContainSubstring("mock provider down"))
		})

		It("should reject an empty content body", func() {
			resp, err := client.Post(ctx, "/session/"+session.ID+"/message", map[string]string{"content": ""})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(400))
		})

		It("should return 404 for a missing session", func() {
			resp, err := client.Post(ctx, "/session/ses_missing/message", map[string]string{"content": "hello"})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(404))
		})

		It("should carry token usage on the completion event", func() {
			testServer.Mock.ScriptText("usage check")

			events, err := client.SendMessage(ctx, session.ID, "Count tokens")
			Expect(err).NotTo(HaveOccurred())

			complete, ok := events[len(events)-1].(*stream.Complete)
			Expect(ok).To(BeTrue())
			Expect(complete.Usage.PromptTokens).To(Equal(10))
			Expect(complete.Usage.CompletionTokens).To(Equal(5))
			Expect(complete.FinishReason).To(Equal("end_turn"))
		})
	})
})
