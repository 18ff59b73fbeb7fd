package server_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/parley-ai/parley/citest/testutil"
)

func waitForEvent(sse *testutil.SSEClient, eventType string) (testutil.SSEEvent, bool) {
	deadline := time.After(5 * time.Second)
	for {
		select {
		case e, ok := <-sse.Events:
			if !ok {
				return testutil.SSEEvent{}, false
			}
			if e.Type == eventType {
				return e, true
			}
		case <-deadline:
			return testutil.SSEEvent{}, false
		}
	}
}

var _ = Describe("Event Stream (SSE)", func() {
	It("should announce the connection", func() {
		sse, err := testutil.OpenSSE(testServer.HTTP.URL)
		Expect(err).NotTo(HaveOccurred())
		defer sse.Close()

		_, ok := waitForEvent(sse, "server.connected")
		Expect(ok).To(BeTrue(), "expected server.connected event")
	})

	It("should publish session lifecycle events", func() {
		sse, err := testutil.OpenSSE(testServer.HTTP.URL)
		Expect(err).NotTo(HaveOccurred())
		defer sse.Close()

		_, ok := waitForEvent(sse, "server.connected")
		Expect(ok).To(BeTrue())

		session, err := client.CreateSession(ctx)
		Expect(err).NotTo(HaveOccurred())
		defer client.DeleteSession(ctx, session.ID)

		created, ok := waitForEvent(sse, "session.created")
		Expect(ok).To(BeTrue(), "expected session.created event")

		var payload struct {
			Info struct {
				ID string `json:"id"`
			} `json:"info"`
		}
		Expect(json.Unmarshal(created.Data, &payload)).To(Succeed())
		Expect(payload.Info.ID).To(Equal(session.ID))
	})

	It("should publish todo updates", func() {
		session, err := client.CreateSession(ctx)
		Expect(err).NotTo(HaveOccurred())
		defer client.DeleteSession(ctx, session.ID)

		sse, err := testutil.OpenSSE(testServer.HTTP.URL)
		Expect(err).NotTo(HaveOccurred())
		defer sse.Close()

		_, ok := waitForEvent(sse, "server.connected")
		Expect(ok).To(BeTrue())

		resp, err := client.Put(ctx, "/session/"+session.ID+"/todo", map[string]any{
			"todos": []map[string]string{{"content": "watch for this", "status": "pending"}},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.IsSuccess()).To(BeTrue())

		updated, ok := waitForEvent(sse, "todo.updated")
		Expect(ok).To(BeTrue(), "expected todo.updated event")

		var payload struct {
			SessionID string `json:"sessionId"`
		}
		Expect(json.Unmarshal(updated.Data, &payload)).To(Succeed())
		Expect(payload.SessionID).To(Equal(session.ID))
	})
})
