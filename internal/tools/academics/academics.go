// Package academics looks up student results and renders them as a markdown
// table for the model to read out.
package academics

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/saker-ai/realtime-assistant/pkg/tools"
)

// ToolName is the function name exposed to the model.
const ToolName = "get_mark_status_summary"

const degradedMessage = "We had an issue retrieving your mark status. Please check back in some time"

const (
	tableHeader    = "| StudentID| Name | Branch | Semester | Subject |Score |Grade |Attendance|\n"
	tableSeparator = "| --- | --- | --- | --- | --- |---|---|---| \n"
)

// ErrNotConfigured is returned when no record store is configured.
var ErrNotConfigured = errors.New("academics: record store not configured")

// Record is one subject result of a student.
type Record struct {
	StudentID  string  `db:"student_id"`
	Name       string  `db:"name"`
	Branch     string  `db:"branch"`
	Semester   int     `db:"semester"`
	Subject    string  `db:"subject"`
	Score      float64 `db:"score"`
	Grade      string  `db:"grade"`
	Attendance float64 `db:"attendance"`
}

// RecordStore returns the records of a student by name.
type RecordStore interface {
	RecordsByName(ctx context.Context, name string) ([]Record, error)
}

// FormatTable renders records as a markdown table. No records yields the
// header only.
func FormatTable(records []Record) string {
	var b strings.Builder
	b.WriteString(tableHeader)
	b.WriteString(tableSeparator)
	for _, r := range records {
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %s |%s |%s |%s |\n",
			r.StudentID, r.Name, r.Branch, r.Semester, r.Subject,
			formatNumber(r.Score), r.Grade, formatNumber(r.Attendance))
	}
	return b.String()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// SummaryArgs are the arguments of the mark status tool.
type SummaryArgs struct {
	UserName string `json:"user_name" jsonschema:"The user name of the student registered in the College System"`
}

// NewTool exposes store as get_mark_status_summary. A nil store degrades
// every call.
func NewTool(store RecordStore, logger *zap.Logger) *tools.Tool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return tools.MustNewFunc(ToolName,
		"retrieve the mark status summary for a student based on the user name",
		func(ctx context.Context, args SummaryArgs) (string, error) {
			if store == nil {
				return "", ErrNotConfigured
			}
			logger.Info("fetching mark status summary", zap.String("user_name", args.UserName))
			records, err := store.RecordsByName(ctx, args.UserName)
			if err != nil {
				return "", fmt.Errorf("query records: %w", err)
			}
			return FormatTable(records), nil
		},
		tools.WithDegradedMessage(degradedMessage),
	)
}
