package holdingsync

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// valueInputOption makes the store parse formula text instead of storing it
// literally.
const valueInputOption = "USER_ENTERED"

// SheetsTable is a Table backed by one Google spreadsheet.
type SheetsTable struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
}

// NewSheetsTable opens the spreadsheet API for spreadsheetID. Failures are
// SETUP_FAILURE errors.
func NewSheetsTable(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*SheetsTable, error) {
	if spreadsheetID == "" {
		return nil, NewError(ErrCodeSetup, "spreadsheet id is required")
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, WrapError(ErrCodeSetup, "create sheets service", err)
	}
	return &SheetsTable{values: svc.Spreadsheets.Values, spreadsheetID: spreadsheetID}, nil
}

// CredentialOptions builds client options from inline service-account JSON or
// a credentials file path; inline JSON wins.
func CredentialOptions(credentialsJSON []byte, credentialsFile string) ([]option.ClientOption, error) {
	scopes := option.WithScopes(sheets.SpreadsheetsScope)
	switch {
	case len(credentialsJSON) > 0:
		return []option.ClientOption{option.WithCredentialsJSON(credentialsJSON), scopes}, nil
	case credentialsFile != "":
		return []option.ClientOption{option.WithCredentialsFile(credentialsFile), scopes}, nil
	default:
		return nil, NewError(ErrCodeSetup, "no sheets credentials configured")
	}
}

// Get implements Table.
func (t *SheetsTable) Get(ctx context.Context, rng string) ([][]string, error) {
	resp, err := t.values.Get(t.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = fmt.Sprint(v)
		}
	}
	return out, nil
}

// Update implements Table.
func (t *SheetsTable) Update(ctx context.Context, rng string, values [][]any) error {
	_, err := t.values.Update(t.spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	return err
}

// BatchUpdate implements Table.
func (t *SheetsTable) BatchUpdate(ctx context.Context, data []RangeValues) error {
	req := &sheets.BatchUpdateValuesRequest{ValueInputOption: valueInputOption}
	for _, d := range data {
		req.Data = append(req.Data, &sheets.ValueRange{Range: d.Range, Values: d.Values})
	}
	_, err := t.values.BatchUpdate(t.spreadsheetID, req).Context(ctx).Do()
	return err
}

// Append implements Table.
func (t *SheetsTable) Append(ctx context.Context, rng string, values [][]any) error {
	_, err := t.values.Append(t.spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	return err
}

// Clear implements Table.
func (t *SheetsTable) Clear(ctx context.Context, rng string) error {
	_, err := t.values.Clear(t.spreadsheetID, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}
