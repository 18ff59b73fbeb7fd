package server_test

import (
	"encoding/json"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/parley-ai/parley/pkg/types"
)

var _ = Describe("Server Endpoints", func() {
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

	Describe("GET /health", func() {
		It("should report ok", func() {
			resp, err := client.Get(ctx, "/health")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.IsSuccess()).To(BeTrue())

			var status map[string]string
			Expect(resp.JSON(&status)).To(Succeed())
			Expect(status["status"]).To(Equal("ok"))
		})
	})

	Describe("POST /session", func() {
		It("should create a session on the default model", func() {
			Expect(session.ID).To(HavePrefix("ses_"))
			Expect(session.Provider).To(Equal("mock"))
			Expect(session.Model).To(Equal("test-model"))
			Expect(session.Messages).To(BeEmpty())
			Expect(session.NextTodoID).To(Equal(1))
		})

		It("should reject an unknown model", func() {
			resp, err := client.Post(ctx, "/session", map[string]string{
				"provider": "mock",
				"model":    "no-such-model",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(400))
		})
	})

	Describe("GET /session", func() {
		It("should list sessions including the new one", func() {
			sessions, err := client.ListSessions(ctx)
			Expect(err).NotTo(HaveOccurred())

			ids := make([]string, 0, len(sessions))
			for _, s := range sessions {
				ids = append(ids, s.ID)
			}
			Expect(ids).To(ContainElement(session.ID))
		})
	})

	Describe("GET /session/{sessionID}", func() {
		It("should retrieve the session by ID", func() {
			retrieved, err := client.GetSession(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved.ID).To(Equal(session.ID))
		})

		It("should return 404 for a non-existent session", func() {
			resp, err := client.Get(ctx, "/session/ses_does_not_exist")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(404))
		})
	})

	Describe("DELETE /session/{sessionID}", func() {
		It("should delete the session", func() {
			doomed, err := client.CreateSession(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(client.DeleteSession(ctx, doomed.ID)).To(Succeed())

			resp, err := client.Get(ctx, "/session/"+doomed.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(404))
		})
	})

	Describe("GET /session/{sessionID}/export", func() {
		It("should return the pretty-printed document", func() {
			resp, err := client.Get(ctx, "/session/"+session.ID+"/export")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.IsSuccess()).To(BeTrue())

			body := string(resp.Body)
			Expect(strings.Contains(body, "\n  \"id\"")).To(BeTrue(), "export should be indented")

			var doc map[string]any
			Expect(json.Unmarshal(resp.Body, &doc)).To(Succeed())
			Expect(doc["id"]).To(Equal(session.ID))
		})
	})

	Describe("Todo endpoints", func() {
		It("should start with an empty list", func() {
			resp, err := client.Get(ctx, "/session/"+session.ID+"/todo")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.IsSuccess()).To(BeTrue())

			var body struct {
				Todos      []types.Todo `json:"todos"`
				NextTodoID int          `json:"nextTodoId"`
			}
			Expect(resp.JSON(&body)).To(Succeed())
			Expect(body.Todos).To(BeEmpty())
			Expect(body.NextTodoID).To(Equal(1))
		})

		It("should assign IDs on replacement", func() {
			resp, err := client.Put(ctx, "/session/"+session.ID+"/todo", map[string]any{
				"todos": []map[string]string{
					{"content": "first", "status": "pending"},
					{"content": "second", "status": "in_progress"},
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.IsSuccess()).To(BeTrue())

			var body struct {
				Todos []types.Todo `json:"todos"`
			}
			Expect(resp.JSON(&body)).To(Succeed())
			Expect(body.Todos).To(HaveLen(2))
			Expect(body.Todos[0].ID).To(Equal(1))
			Expect(body.Todos[1].ID).To(Equal(2))
		})

		It("should reject empty content", func() {
			resp, err := client.Put(ctx, "/session/"+session.ID+"/todo", map[string]any{
				"todos": []map[string]string{{"content": ""}},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(400))
		})

		It("should return 404 for a missing session", func() {
			resp, err := client.Put(ctx, "/session/ses_missing/todo", map[string]any{
				"todos": []map[string]string{{"content": "x"}},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(404))
		})
	})

	Describe("POST /session/{sessionID}/ask/{questionID}", func() {
		It("should conflict when nothing is pending", func() {
			resp, err := client.Post(ctx, "/session/"+session.ID+"/ask/ask_unknown", map[string]any{
				"answers": map[string]string{"0": "yes"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(409))
		})
	})

	Describe("POST /session/{sessionID}/abort", func() {
		It("should return 404 when no stream is active", func() {
			resp, err := client.Post(ctx, "/session/"+session.ID+"/abort", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(404))
		})
	})

	Describe("GET /provider", func() {
		It("should list the mock provider", func() {
			resp, err := client.Get(ctx, "/provider")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.IsSuccess()).To(BeTrue())

			var providers []struct {
				ID         string        `json:"id"`
				Configured bool          `json:"configured"`
				Models     []types.Model `json:"models"`
			}
			Expect(resp.JSON(&providers)).To(Succeed())
			Expect(providers).To(HaveLen(1))
			Expect(providers[0].ID).To(Equal("mock"))
			Expect(providers[0].Configured).To(BeTrue())
			Expect(providers[0].Models).NotTo(BeEmpty())
		})
	})

	Describe("GET /tool", func() {
		It("should list the built-in tools", func() {
			resp, err := client.Get(ctx, "/tool")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.IsSuccess()).To(BeTrue())

			var ids []string
			Expect(resp.JSON(&ids)).To(Succeed())
			Expect(ids).To(ContainElements("read", "edit", "glob", "todowrite", "ask"))
		})
	})
})
