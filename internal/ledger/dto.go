package ledger

import (
	"time"

	"github.com/choubo-app/choubo/internal/ledger/shared"
)

// entryDTO is the JSON shape of one submitted posting.
type entryDTO struct {
	FiscalDate      string `json:"fiscalDate" validate:"required,datetime=2006-01-02"`
	DebitAccountID  int64  `json:"debitAccountId" validate:"required,gt=0"`
	CreditAccountID int64  `json:"creditAccountId" validate:"required,gt=0"`
	Amount          int64  `json:"amount" validate:"required,gt=0"`
	SourceType      string `json:"sourceType" validate:"required"`
	SourceID        *int64 `json:"sourceId,omitempty"`
	Memo            string `json:"memo,omitempty" validate:"max=500"`
}

type postRequest struct {
	Entries []entryDTO `json:"entries" validate:"required,min=1,dive"`
}

type replaceRequest struct {
	Entries []entryDTO `json:"entries" validate:"dive"`
}

type postResponse struct {
	IDs []int64 `json:"ids"`
}

func (d entryDTO) toInput() (EntryInput, error) {
	date, err := time.Parse("2006-01-02", d.FiscalDate)
	if err != nil {
		return EntryInput{}, shared.Validationf("invalid fiscal date %q", d.FiscalDate)
	}
	return EntryInput{
		FiscalDate:      date,
		DebitAccountID:  d.DebitAccountID,
		CreditAccountID: d.CreditAccountID,
		Amount:          d.Amount,
		SourceType:      SourceType(d.SourceType),
		SourceID:        d.SourceID,
		Memo:            d.Memo,
	}, nil
}

func toInputs(dtos []entryDTO) ([]EntryInput, error) {
	inputs := make([]EntryInput, 0, len(dtos))
	for _, d := range dtos {
		in, err := d.toInput()
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}
