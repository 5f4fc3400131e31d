// Package notifications emails customers about loans past their due date.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/biblionet/biblionet-backend/internal/loanrules"
	"github.com/biblionet/biblionet-backend/pkg/calendar"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/logger"
	"github.com/biblionet/biblionet-backend/pkg/mailer"
	"github.com/biblionet/biblionet-backend/pkg/money"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

const reminderSubject = "BiblioNet: tienes préstamos vencidos"

type overdueLister interface {
	Overdue(ctx context.Context, today time.Time) ([]models.Loan, error)
}

type ruleReader interface {
	Current(ctx context.Context) (*models.LoanRule, error)
}

// ReminderResult summarises one reminder run.
type ReminderResult struct {
	Customers int `json:"customers"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

// Reminders composes and sends overdue reminders.
type Reminders struct {
	loans  overdueLister
	rules  ruleReader
	sender mailer.Sender
	logg   *logger.Logger
	clock  calendar.Clock
}

// NewReminders wires the reminder job.
func NewReminders(loans overdueLister, rules ruleReader, sender mailer.Sender, logg *logger.Logger, clock calendar.Clock) (*Reminders, error) {
	if loans == nil {
		return nil, fmt.Errorf("overdue loan lister required")
	}
	if rules == nil {
		return nil, fmt.Errorf("loan rule reader required")
	}
	if sender == nil {
		return nil, fmt.Errorf("mail sender required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Reminders{loans: loans, rules: rules, sender: sender, logg: logg, clock: clock}, nil
}

// SendOverdue mails every customer with overdue loans once. A failed delivery
// does not stop the others; all failures are returned together.
func (r *Reminders) SendOverdue(ctx context.Context) (ReminderResult, error) {
	today := r.clock.Today()
	loans, err := r.loans.Overdue(ctx, today)
	if err != nil {
		return ReminderResult{}, fmt.Errorf("list overdue loans: %w", err)
	}

	var daily *decimal.Decimal
	rule, err := r.rules.Current(ctx)
	switch {
	case err == nil:
		daily = &rule.DailyFee
	case errors.Is(err, loanrules.ErrNoRule):
	default:
		return ReminderResult{}, fmt.Errorf("load loan rule: %w", err)
	}

	var (
		result ReminderResult
		errs   error
	)
	for _, group := range groupByCustomer(loans) {
		result.Customers++
		msg := compose(group, today, daily)
		if err := r.sender.Send(ctx, msg); err != nil {
			result.Failed++
			errs = multierr.Append(errs, fmt.Errorf("customer %d: %w", group[0].CustomerID, err))
			continue
		}
		result.Sent++
	}

	r.logg.Info(r.logg.WithFields(ctx, map[string]any{
		"customers": result.Customers,
		"sent":      result.Sent,
		"failed":    result.Failed,
	}), "overdue reminders sent")
	return result, errs
}

// groupByCustomer keeps the first-seen order of customers.
func groupByCustomer(loans []models.Loan) [][]models.Loan {
	index := map[uint]int{}
	var groups [][]models.Loan
	for _, loan := range loans {
		i, ok := index[loan.CustomerID]
		if !ok {
			i = len(groups)
			index[loan.CustomerID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], loan)
	}
	return groups
}

func compose(loans []models.Loan, today time.Time, daily *decimal.Decimal) mailer.Message {
	user := loans[0].Customer.User
	name := user.FullName()

	var text, rows strings.Builder
	fmt.Fprintf(&text, "Hola %s,\n\nLos siguientes préstamos están vencidos:\n\n", name)
	total := decimal.Zero
	for _, loan := range loans {
		late := calendar.DaysLate(loan.DueDate, today)
		line := fmt.Sprintf("%s (vencía el %s, %d día(s) de atraso)", loan.Copy.Book.Title, calendar.Format(loan.DueDate), late)
		if daily != nil {
			fee := money.Fee(*daily, late)
			total = total.Add(fee)
			line += ", mora estimada " + money.Format(fee)
		}
		fmt.Fprintf(&text, "- %s\n", line)
		fmt.Fprintf(&rows, "<li>%s</li>", html.EscapeString(line))
	}
	closing := "Por favor devuélvelos en la biblioteca lo antes posible."
	if daily != nil {
		closing = fmt.Sprintf("Mora total estimada: %s. %s", money.Format(total), closing)
	}
	fmt.Fprintf(&text, "\n%s\n", closing)

	return mailer.Message{
		ToEmail: user.Email,
		ToName:  name,
		Subject: reminderSubject,
		Text:    text.String(),
		HTML: fmt.Sprintf("<p>Hola %s,</p><p>Los siguientes préstamos están vencidos:</p><ul>%s</ul><p>%s</p>",
			html.EscapeString(name), rows.String(), html.EscapeString(closing)),
	}
}
