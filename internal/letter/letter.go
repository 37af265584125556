// Package letter turns a stored listing into an adapted cover letter and
// mails it to the requester.
package letter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"os"
	"path/filepath"
	"time"

	"github.com/amishk599/jobfeed/internal/mailer"
	"github.com/amishk599/jobfeed/internal/model"
)

// ErrInvalidEmail is returned for a recipient address that does not parse.
var ErrInvalidEmail = errors.New("invalid email address")

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Writer adapts a base letter to a listing. *ai.LLMLetterWriter and
// *ai.NopLetterWriter satisfy it.
type Writer interface {
	Write(ctx context.Context, baseLetter string, listing model.Listing) (string, error)
}

// Mailer delivers one message. *mailer.SMTPMailer satisfies it.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Result describes a delivered letter.
type Result struct {
	ListingID int64
	Path      string
	Recipient string
}

// Service runs the letter pipeline: lookup, generate, render, send.
type Service struct {
	store          model.ListingStore
	writer         Writer
	mailer         Mailer
	baseLetterPath string
	outputDir      string
	logger         *slog.Logger
	now            func() time.Time
}

func NewService(store model.ListingStore, writer Writer, m Mailer, baseLetterPath, outputDir string, logger *slog.Logger) *Service {
	return &Service{
		store:          store,
		writer:         writer,
		mailer:         m,
		baseLetterPath: baseLetterPath,
		outputDir:      outputDir,
		logger:         logger,
		now:            time.Now,
	}
}

// Create generates a letter for listingID and sends it to email. A missing
// listing yields model.ErrNotFound.
func (s *Service) Create(ctx context.Context, listingID int64, email string) (Result, error) {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}

	listing, err := s.store.GetByID(ctx, listingID)
	if err != nil {
		return Result{}, err
	}

	base, err := os.ReadFile(s.baseLetterPath)
	if err != nil {
		return Result{}, fmt.Errorf("read base letter: %w", err)
	}

	text, err := s.writer.Write(ctx, string(base), listing)
	if err != nil {
		return Result{}, fmt.Errorf("write letter for listing %d: %w", listingID, err)
	}

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output dir: %w", err)
	}
	name := fmt.Sprintf("letter-%d-%s.docx", listing.ID, s.now().Format("20060102-150405"))
	path := filepath.Join(s.outputDir, name)
	if err := RenderDocx(path, listing, text); err != nil {
		return Result{}, fmt.Errorf("render letter: %w", err)
	}

	doc, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read rendered letter: %w", err)
	}

	msg := mailer.Message{
		To:      []string{addr.Address},
		Subject: "Cover letter: " + listing.Headline,
		Body:    text,
		Attachments: []mailer.Attachment{{
			Filename:    name,
			ContentType: docxContentType,
			Data:        doc,
		}},
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return Result{}, fmt.Errorf("send letter: %w", err)
	}

	s.logger.Info("letter sent",
		"listing_id", listing.ID,
		"headline", listing.Headline,
		"to", addr.Address,
		"path", path,
	)
	return Result{ListingID: listing.ID, Path: path, Recipient: addr.Address}, nil
}
