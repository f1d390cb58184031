package pipeline_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"procodus.dev/plant-processor/internal/alerts"
	"procodus.dev/plant-processor/internal/automation"
	"procodus.dev/plant-processor/internal/pipeline"
	"procodus.dev/plant-processor/internal/storage"
	"procodus.dev/plant-processor/pkg/plant"
)

var _ = Describe("Classify", func() {
	DescribeTable("should map stage errors onto classes",
		func(err error, class error, label string) {
			if class == nil {
				Expect(pipeline.Classify(err)).To(BeNil())
			} else {
				Expect(pipeline.Classify(err)).To(Equal(class))
			}
			Expect(pipeline.ClassLabel(err)).To(Equal(label))
		},
		Entry("nil", nil, nil, ""),
		Entry("database unavailable", fmt.Errorf("op: %w", storage.ErrUnavailable), pipeline.ErrTransport, "transport"),
		Entry("alert notify", fmt.Errorf("%w: kafka", alerts.ErrNotify), pipeline.ErrTransport, "transport"),
		Entry("automation publish", fmt.Errorf("%w: not connected", automation.ErrPublish), pipeline.ErrTransport, "transport"),
		Entry("deadline", context.DeadlineExceeded, pipeline.ErrTransport, "transport"),
		Entry("write rejected", fmt.Errorf("op: %w", storage.ErrWrite), pipeline.ErrStorage, "storage"),
		Entry("alert persist of a write", fmt.Errorf("%w: %w", alerts.ErrPersist, storage.ErrWrite), pipeline.ErrStorage, "storage"),
		Entry("invalid reading", fmt.Errorf("%w: missing plantId", plant.ErrInvalidReading), pipeline.ErrValidation, "validation"),
		Entry("already classified", fmt.Errorf("%w: x", pipeline.ErrValidation), pipeline.ErrValidation, "validation"),
		Entry("anything else", errors.New("boom"), pipeline.ErrInternal, "internal"),
	)
})
