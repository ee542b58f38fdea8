package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fleetsight/pulse/internal/http/handler"
	"github.com/fleetsight/pulse/internal/model"
	"github.com/fleetsight/pulse/internal/service"
)

var _ = Describe("EventIngestHandler", func() {
	var (
		router *gin.Engine
		svc    *mockIngestService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockIngestService{}
		h := handler.NewEventIngestHandler(svc)
		router.POST("/events/batch", h.IngestBatch)
	})

	post := func(body []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/events/batch", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("returns 200 with the batch counters", func() {
		svc.processBatchFn = func(_ context.Context, events []*model.MachineEvent) *service.BatchResult {
			return &service.BatchResult{
				Accepted: 2,
				Deduped:  1,
				Rejected: 1,
				Rejections: []service.Rejection{
					{EventID: "E-3", Reason: service.ReasonInvalidDuration},
				},
			}
		}

		body, _ := json.Marshal([]map[string]any{
			{"eventId": "E-1", "machineId": "M1", "factoryId": "F1", "eventTime": "2025-03-01T06:00:00Z", "durationMs": 100, "defectCount": 0},
			{"eventId": "E-2", "machineId": "M1", "factoryId": "F1", "eventTime": "2025-03-01T06:01:00Z", "durationMs": 100, "defectCount": 2},
			{"eventId": "E-2", "machineId": "M1", "factoryId": "F1", "eventTime": "2025-03-01T06:01:00Z", "durationMs": 100, "defectCount": 2},
			{"eventId": "E-3", "machineId": "M1", "factoryId": "F1", "eventTime": "2025-03-01T06:02:00Z", "durationMs": -1, "defectCount": 0},
		})

		w := post(body)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["accepted"]).To(BeEquivalentTo(2))
		Expect(resp["deduped"]).To(BeEquivalentTo(1))
		Expect(resp["updated"]).To(BeEquivalentTo(0))
		Expect(resp["rejected"]).To(BeEquivalentTo(1))
		Expect(resp["rejections"]).To(HaveLen(1))
	})

	It("always includes a rejections array, even when empty", func() {
		body, _ := json.Marshal([]map[string]any{})

		w := post(body)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"rejections":[]`))
	})

	It("hands the decoded events to the pipeline", func() {
		received := time.Date(2025, 3, 1, 6, 0, 30, 0, time.UTC)
		body, _ := json.Marshal([]map[string]any{
			{
				"eventId":      "E-1",
				"machineId":    "M7",
				"factoryId":    "F2",
				"eventTime":    "2025-03-01T06:00:00Z",
				"receivedTime": received.Format(time.RFC3339),
				"durationMs":   250,
				"defectCount":  -1,
			},
			{"eventId": "E-2", "machineId": "M7", "factoryId": "F2", "eventTime": "2025-03-01T06:05:00Z", "durationMs": 90},
		})

		post(body)

		Expect(svc.captured).To(HaveLen(2))
		first := svc.captured[0]
		Expect(first.EventID).To(Equal("E-1"))
		Expect(first.MachineID).To(Equal("M7"))
		Expect(first.FactoryID).To(Equal("F2"))
		Expect(first.ReceivedTime).To(BeTemporally("==", received))
		Expect(first.DurationMs).To(Equal(int64(250)))
		Expect(first.DefectCount).To(Equal(model.DefectCountUnknown))

		// Absent receivedTime and defectCount fall back to zero values; the
		// pipeline assigns the server clock later.
		second := svc.captured[1]
		Expect(second.ReceivedTime.IsZero()).To(BeTrue())
		Expect(second.DefectCount).To(BeZero())
	})

	It("returns 400 on a malformed body", func() {
		w := post([]byte(`{"not":"an array"`))

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(svc.captured).To(BeNil())
	})
})
