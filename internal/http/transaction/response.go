package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

type Response struct {
	ID          uuid.UUID            `json:"id"`
	Title       string               `json:"title"`
	Amount      decimal.Decimal      `json:"amount"`
	Type        transaction.Type     `json:"type"`
	Category    transaction.Category `json:"category"`
	Icon        string               `json:"icon"`
	Description string               `json:"description,omitempty"`
	Date        string               `json:"date"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   *time.Time           `json:"updated_at,omitempty"`
}

func ToResponse(tx *transaction.Transaction) Response {
	return Response{
		ID:          tx.ID,
		Title:       tx.Title,
		Amount:      tx.Amount,
		Type:        tx.Type,
		Category:    tx.Category,
		Icon:        tx.Category.Icon(),
		Description: tx.Description,
		Date:        tx.Date.Format(time.DateOnly),
		CreatedAt:   tx.CreatedAt,
		UpdatedAt:   tx.UpdatedAt,
	}
}

func ToResponseList(txs []transaction.Transaction) []Response {
	resp := make([]Response, len(txs))
	for i := range txs {
		resp[i] = ToResponse(&txs[i])
	}

	return resp
}

// Params is the wire form of a new transaction. Amounts travel as strings so
// they keep their exact decimal value.
type Params struct {
	Title       string `json:"title"`
	Amount      string `json:"amount"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date,omitempty"`
}

func ToParams(p transaction.CreateParams) Params {
	dto := Params{
		Title:       p.Title,
		Amount:      p.Amount.String(),
		Type:        string(p.Type),
		Category:    string(p.Category),
		Description: p.Description,
	}

	if !p.Date.IsZero() {
		dto.Date = p.Date.Format(time.DateOnly)
	}

	return dto
}

// CreateParams converts the wire form. An unknown type or category is passed
// through so the service reports it as a validation error.
func (p Params) CreateParams() (transaction.CreateParams, error) {
	amount, err := transaction.ParseAmount(p.Amount)
	if err != nil {
		return transaction.CreateParams{}, err
	}

	date, err := parseDate(p.Date)
	if err != nil {
		return transaction.CreateParams{}, err
	}

	typ, ok := transaction.ParseType(p.Type)
	if !ok {
		typ = transaction.Type(p.Type)
	}

	category, ok := transaction.ParseCategory(p.Category)
	if !ok {
		category = transaction.Category(p.Category)
	}

	return transaction.CreateParams{
		Title:       p.Title,
		Amount:      amount,
		Type:        typ,
		Category:    category,
		Description: p.Description,
		Date:        date,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, &transaction.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}

	return d, nil
}

type patchRequest struct {
	Title       *string `json:"title"`
	Amount      *string `json:"amount"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
}

func (req patchRequest) patch() (transaction.Patch, error) {
	patch := transaction.Patch{
		Title:       req.Title,
		Description: req.Description,
	}

	if req.Amount != nil {
		amount, err := transaction.ParseAmount(*req.Amount)
		if err != nil {
			return transaction.Patch{}, err
		}

		patch.Amount = &amount
	}

	if req.Category != nil {
		category, ok := transaction.ParseCategory(*req.Category)
		if !ok {
			category = transaction.Category(*req.Category)
		}

		patch.Category = &category
	}

	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			return transaction.Patch{}, err
		}

		if date.IsZero() {
			return transaction.Patch{}, &transaction.ValidationError{Field: "date", Reason: "must not be empty"}
		}

		patch.Date = &date
	}

	return patch, nil
}

type monthResponse struct {
	Month   string          `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

type summaryResponse struct {
	TotalIncome            decimal.Decimal `json:"total_income"`
	TotalExpense           decimal.Decimal `json:"total_expense"`
	TotalBalance           decimal.Decimal `json:"total_balance"`
	UniqueIncomeCategories int             `json:"unique_income_categories"`
	ExpenseCount           int             `json:"expense_count"`
	BalanceTrend           int64           `json:"balance_trend"`
	IncomeTrend            int64           `json:"income_trend"`
	ExpenseTrend           int64           `json:"expense_trend"`
	SavingsGoal            decimal.Decimal `json:"savings_goal"`
	GoalProgress           int64           `json:"goal_progress"`
	Monthly                []monthResponse `json:"monthly"`
}

func toSummary(m transaction.Metrics, goal decimal.Decimal, months []transaction.MonthTotal) summaryResponse {
	resp := summaryResponse{
		TotalIncome:            m.TotalIncome,
		TotalExpense:           m.TotalExpense,
		TotalBalance:           m.TotalBalance,
		UniqueIncomeCategories: m.UniqueIncomeCategories,
		ExpenseCount:           m.ExpenseCount,
		BalanceTrend:           m.BalanceTrend,
		IncomeTrend:            m.IncomeTrend,
		ExpenseTrend:           m.ExpenseTrend,
		SavingsGoal:            goal,
		GoalProgress:           transaction.GoalProgress(m.TotalBalance, goal),
		Monthly:                make([]monthResponse, len(months)),
	}

	for i, mt := range months {
		resp.Monthly[i] = monthResponse{
			Month:   mt.Month.Format("2006-01"),
			Income:  mt.Income,
			Expense: mt.Expense,
		}
	}

	return resp
}
