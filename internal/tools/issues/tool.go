package issues

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"

	"github.com/saker-ai/realtime-assistant/pkg/tools"
)

// Tool names exposed to the model.
const (
	StatusToolName   = "get_grievance_status_def"
	RegisterToolName = "register_user_grievance_def"
)

// Categories are the grievance categories the model may choose from.
var Categories = []string{
	"facilities issues",
	"Exams issues",
	"Onboarding issues",
	"Library issues",
	"other issues",
}

const (
	notFoundMessage         = "sorry, we could not locate a grievance with this ID. Can you please verify your input again?"
	statusDegradedMessage   = "We had an issue retrieving your grievance status. Please check back in some time"
	registerDegradedMessage = "We had an issue registering your grievance. Please check back in some time"
)

// StatusArgs are the arguments of the grievance status tool.
type StatusArgs struct {
	GrievanceID float64 `json:"grievance_id" jsonschema:"The grievance id of the user registered in the Grievance System"`
}

// RegisterArgs are the arguments of the grievance registration tool.
type RegisterArgs struct {
	GrievanceCategory    string `json:"grievance_category"`
	GrievanceDescription string `json:"grievance_description" jsonschema:"The detailed description of the grievance faced by the user"`
}

// FormatStatus renders an issue as the status summary read back to the user.
func FormatStatus(issue Issue) string {
	var b strings.Builder
	b.WriteString("\n Here is the updated status of your grievance.\ngrievance_id : ")
	b.WriteString(issue.ID)
	if p := issue.Fields.Priority; p != nil {
		b.WriteString("\npriority : " + p.Name)
	}
	if s := issue.Fields.Status; s != nil {
		b.WriteString("\nstatus : " + s.StatusCategory.Key)
	}
	b.WriteString("\ngrievance description : " + issue.Fields.Description)
	if issue.Fields.DueDate != "" {
		b.WriteString("\ndue date : " + issue.Fields.DueDate)
	} else {
		b.WriteString("\ndue date : not assigned by the system yet.")
	}
	return b.String()
}

// RegisteredMessage is the confirmation read back after filing a grievance.
func RegisteredMessage(id string) string {
	return fmt.Sprintf("We are sorry about the issue you are facing. We have registered a grievance with id %s to track it to closure. Please quote that in your future communications with us", id)
}

// Tools returns the status and registration tools backed by c.
func (c *Client) Tools() []*tools.Tool {
	status := tools.MustNewFunc(StatusToolName,
		"fetch real time grievance status for a grievance id",
		func(ctx context.Context, args StatusArgs) (string, error) {
			id := strconv.FormatFloat(args.GrievanceID, 'f', -1, 64)
			issue, ok, err := c.FindByID(ctx, id)
			if err != nil {
				return "", err
			}
			if !ok {
				c.logger.Info("grievance not found", zap.String("id", id))
				return notFoundMessage, nil
			}
			return FormatStatus(issue), nil
		},
		tools.WithDegradedMessage(statusDegradedMessage),
	)

	register := tools.MustNewFunc(RegisterToolName,
		"register a grievance, or complaint or issue from the user in the college facilities, academics system",
		func(ctx context.Context, args RegisterArgs) (string, error) {
			issue, err := c.Create(ctx, args.GrievanceCategory, args.GrievanceDescription)
			if err != nil {
				return "", err
			}
			return RegisteredMessage(issue.ID), nil
		},
		tools.WithDegradedMessage(registerDegradedMessage),
		tools.WithParameters(func(s *jsonschema.Schema) {
			prop, ok := s.Properties["grievance_category"]
			if !ok {
				return
			}
			prop.Enum = make([]any, len(Categories))
			for i, category := range Categories {
				prop.Enum[i] = category
			}
		}),
	)
	return []*tools.Tool{status, register}
}
