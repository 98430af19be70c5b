package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"

	"codedepartament.ru/sbp/internal/entity"
	"codedepartament.ru/sbp/internal/modules/export/dto"
	"codedepartament.ru/sbp/internal/modules/export/repository"
	"codedepartament.ru/sbp/pkg/apperror"
	"github.com/google/uuid"
)

const (
	dateLayout        = "02.01.2006 15:04"
	descriptionLength = 200
)

var participantHeader = []string{
	"User ID", "Full name", "Nickname", "Region", "Role", "Rating", "Place", "Participation",
}

// SheetWriter is satisfied by *sheets.Client.
type SheetWriter interface {
	SpreadsheetID() string
	ReplaceTab(ctx context.Context, tab string, rows [][]string) (int64, error)
}

type ExportService interface {
	// Rows renders the participants report: a block per competition with its
	// details, individual participants and team rosters.
	Rows(ctx context.Context, competitionID *uint) ([][]string, error)
	PushToSheets(ctx context.Context, competitionID uint) (*dto.SheetsExportResponse, error)
}

type exportService struct {
	repo   repository.ExportRepository
	sheets SheetWriter
}

// NewExportService accepts a nil sheets writer; PushToSheets then fails with a bad request.
func NewExportService(repo repository.ExportRepository, sheets SheetWriter) ExportService {
	return &exportService{repo: repo, sheets: sheets}
}

func (s *exportService) Rows(ctx context.Context, competitionID *uint) ([][]string, error) {
	competitions, err := s.repo.Competitions(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if len(competitions) == 0 {
		return nil, apperror.Wrap(apperror.ErrNotFound, "no competitions to export")
	}

	var rows [][]string
	for i := range competitions {
		if i > 0 {
			rows = append(rows, []string{}, []string{})
		}
		block, err := s.competitionBlock(ctx, &competitions[i])
		if err != nil {
			return nil, err
		}
		rows = append(rows, block...)
	}
	return rows, nil
}

func (s *exportService) competitionBlock(ctx context.Context, c *entity.Competition) ([][]string, error) {
	participants, err := s.repo.Participants(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	teams, err := s.repo.Teams(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	places := make(map[uuid.UUID]int, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
		places[p.UserID] = p.Result
	}
	inTeam := map[uuid.UUID]bool{}
	for _, t := range teams {
		if t.CaptainID != nil {
			ids = append(ids, *t.CaptainID)
		}
		for _, m := range t.Members {
			ids = append(ids, m.UserID)
			inTeam[m.UserID] = true
		}
	}
	nicks, err := s.repo.NickNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	rows := [][]string{
		{fmt.Sprintf("Competition: %s (ID: %d)", c.Name, c.ID)},
		{"Kind", string(c.Kind)},
		{"Format", string(c.Format)},
		{"Discipline", disciplineName(c)},
		{"Status", string(c.Status)},
		{"Max participants", strconv.Itoa(c.MaxParticipants)},
		{"Description", truncate(c.Description, descriptionLength)},
	}
	if c.Dates != nil {
		rows = append(rows,
			[]string{"Dates", c.Dates.StartDate.Format(dateLayout) + " - " + c.Dates.EndDate.Format(dateLayout)},
			[]string{"Registration", c.Dates.RegistrationStart.Format(dateLayout) + " - " + c.Dates.RegistrationEnd.Format(dateLayout)},
		)
	}
	rows = append(rows, []string{}, participantHeader)

	for _, p := range participants {
		if inTeam[p.UserID] {
			continue
		}
		rows = append(rows, personRow(p.UserID, p.Profile, nicks, p.Result, "individual"))
	}

	for _, t := range teams {
		captain := "not set"
		if t.CaptainID != nil {
			captain = nicks[*t.CaptainID]
		}
		rows = append(rows, []string{fmt.Sprintf("Team: %s (Captain: %s)", t.Name, captain)})
		for _, m := range t.Members {
			rows = append(rows, personRow(m.UserID, m.Profile, nicks, places[m.UserID], "team"))
		}
	}
	return rows, nil
}

func (s *exportService) PushToSheets(ctx context.Context, competitionID uint) (*dto.SheetsExportResponse, error) {
	if s.sheets == nil {
		return nil, apperror.Wrap(apperror.ErrBadRequest, "google sheets export is not configured")
	}

	rows, err := s.Rows(ctx, &competitionID)
	if err != nil {
		return nil, err
	}

	tab := fmt.Sprintf("competition-%d", competitionID)
	written, err := s.sheets.ReplaceTab(ctx, tab, rows)
	if err != nil {
		return nil, fmt.Errorf("push competition %d to sheets: %w", competitionID, err)
	}
	log.Printf("📤 Competition %d exported to sheet tab %s (%d rows)", competitionID, tab, written)

	return &dto.SheetsExportResponse{
		SpreadsheetID: s.sheets.SpreadsheetID(),
		Tab:           tab,
		Rows:          written,
	}, nil
}

// WriteCSV writes rows prefixed with a UTF-8 BOM.
func WriteCSV(w io.Writer, rows [][]string) error {
	if _, err := w.Write([]byte("\xEF\xBB\xBF")); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func FileName(competitionID *uint) string {
	if competitionID == nil {
		return "competitions_participants.csv"
	}
	return fmt.Sprintf("competition_%d_participants.csv", *competitionID)
}

func personRow(userID uuid.UUID, p *entity.Profile, nicks map[uuid.UUID]string, place int, participation string) []string {
	row := []string{userID.String(), "", nicks[userID], "", "", "", placeCell(place), participation}
	if p != nil {
		row[1] = p.FullName()
		if p.Region != nil {
			row[3] = p.Region.Name
		}
		row[4] = p.Role.String()
		row[5] = strconv.FormatFloat(p.Rating, 'f', 2, 64)
	}
	return row
}

func placeCell(place int) string {
	if place <= 0 {
		return "-"
	}
	return strconv.Itoa(place)
}

func disciplineName(c *entity.Competition) string {
	if c.Discipline == nil {
		return ""
	}
	return c.Discipline.Name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
