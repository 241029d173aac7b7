package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/truenumber/truenumber-cli/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// SessionView combines the authenticated user and token for display
type SessionView struct {
	User  *model.User `json:"user"`
	Token string      `json:"token,omitempty"`
}

// UserListView wraps the user directory for display
type UserListView struct {
	Users []model.User `json:"users"`
}

// HistoryView wraps one history scope's records for display
type HistoryView struct {
	Scope   model.HistoryScope `json:"scope"`
	Records []model.GameRecord `json:"records"`
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case model.User:
		o.printUser(v)
	case SessionView:
		o.printSession(v)
	case UserListView:
		o.printUserList(v)
	case model.UserDetails:
		o.printUserDetails(v)
	case model.PlayOutcome:
		o.printOutcome(v)
	case HistoryView:
		o.printHistory(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printUser(u model.User) {
	fmt.Printf("User: %s (%s)\n", u.Username, u.ID)
	fmt.Printf("Email: %s\n", u.Email)
	fmt.Printf("Phone: %s\n", u.Phone)
	fmt.Printf("Role: %s\n", u.Role)
	fmt.Printf("Balance: %d pts\n", u.Balance)
}

func (o *Output) printSession(s SessionView) {
	if s.User != nil {
		o.printUser(*s.User)
	}
	if s.Token != "" {
		fmt.Printf("Token: %s\n", s.Token)
	}
}

func (o *Output) printUserList(v UserListView) {
	fmt.Printf("Users (%d):\n", len(v.Users))
	for _, u := range v.Users {
		fmt.Printf("  - %s (%s) %s <%s> - %d pts [%s]\n", u.Username, u.ID, u.Phone, u.Email, u.Balance, u.Role)
	}
}

func (o *Output) printUserDetails(d model.UserDetails) {
	o.printUser(d.User)
	fmt.Printf("Games (%d):\n", len(d.GameHistory))
	o.printRecords(d.GameHistory)
}

func (o *Output) printOutcome(p model.PlayOutcome) {
	fmt.Printf("Vous avez %s ! Nombre: %d\n", p.Result, p.GeneratedNumber)
	fmt.Printf("Nouveau solde: %d pts\n", p.NewBalance)
}

func (o *Output) printHistory(v HistoryView) {
	switch v.Scope.Kind {
	case model.ScopeAll:
		fmt.Printf("Global history (%d games):\n", len(v.Records))
	default:
		fmt.Printf("History (%d games):\n", len(v.Records))
	}
	o.printRecords(v.Records)
}

func (o *Output) printRecords(records []model.GameRecord) {
	for _, r := range records {
		sign := ""
		if r.BalanceChange > 0 {
			sign = "+"
		}
		owner := ""
		if r.User != nil {
			owner = " " + r.User.Username
		}
		fmt.Printf("  %s%s  n=%d  %s  %s%d  -> %d pts\n",
			r.Date.Format(time.RFC3339), owner, r.GeneratedNumber, r.Result, sign, r.BalanceChange, r.NewBalance)
	}
}
