package web

// messages.go maps loader and request errors onto user-facing messages.
//
// Codes:
//
//	LOAD001 - No CSV files in the data directory
//	LOAD002 - Dataset download failed
//	LOAD003 - A CSV file could not be parsed
//	LOAD004 - A CSV file has no date column to sort by
//	LOAD005 - Two files produce the same table key
//	LOAD006 - Dataset host rejected the credentials
//	TBL001  - Unknown table key
//	REQ001  - Reload already running
//	REQ002  - Request timed out or was cancelled
//	REQ003  - Reload rate limit exceeded
//	ERR000  - Anything else

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/datasetloader/internal/loader"
	"github.com/JonMunkholm/datasetloader/internal/table"
)

// UserMessage is an error rendered for clients.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	errTableNotFound   = errors.New("table not found")
	errReloadInProcess = errors.New("reload already in progress")
)

// MapError converts err into a user message and the HTTP status to send.
func MapError(err error) (UserMessage, int) {
	var (
		notFound  *loader.NotFoundError
		download  *loader.DownloadError
		parse     *loader.ParseError
		sortErr   *loader.SortError
		collision *loader.CollisionError
		auth      *loader.AuthenticationError
	)

	switch {
	case err == nil:
		return UserMessage{}, http.StatusOK
	case errors.Is(err, errTableNotFound):
		return UserMessage{
			Message: "Table not found",
			Action:  "Pick a table from the dashboard",
			Code:    "TBL001",
		}, http.StatusNotFound
	case errors.Is(err, errReloadInProcess):
		return UserMessage{
			Message: "A reload is already running",
			Action:  "Wait for it to finish and try again",
			Code:    "REQ001",
		}, http.StatusConflict
	case errors.As(err, &notFound):
		return UserMessage{
			Message: "No CSV files found under " + notFound.Path,
			Action:  "Remove the directory contents to force a fresh download",
			Code:    "LOAD001",
		}, http.StatusNotFound
	case errors.As(err, &download):
		return UserMessage{
			Message: "Dataset download failed",
			Action:  "Check the dataset name and network access, then reload",
			Code:    "LOAD002",
		}, http.StatusBadGateway
	case errors.As(err, &auth):
		return UserMessage{
			Message: "Dataset host rejected the credentials",
			Action:  "Check KAGGLE_USERNAME and KAGGLE_KEY",
			Code:    "LOAD006",
		}, http.StatusBadGateway
	case errors.As(err, &parse):
		return UserMessage{
			Message: "Could not parse " + parse.File + parseDetail(parse.Err),
			Action:  "Fix or remove the file, then reload",
			Code:    "LOAD003",
		}, http.StatusUnprocessableEntity
	case errors.As(err, &sortErr):
		return UserMessage{
			Message: "Column " + sortErr.Column + " is missing in " + sortErr.File,
			Action:  "Set DATASET_DATE_COLUMN or DATASET_SORT=never",
			Code:    "LOAD004",
		}, http.StatusUnprocessableEntity
	case errors.As(err, &collision):
		return UserMessage{
			Message: "Table " + collision.Key + " is produced by more than one file",
			Action:  "Set DATASET_ON_COLLISION=overwrite or rename one file",
			Code:    "LOAD005",
		}, http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return UserMessage{
			Message: "Request timed out",
			Action:  "Please try again",
			Code:    "REQ002",
		}, http.StatusGatewayTimeout
	default:
		return UserMessage{
			Message: "An unexpected error occurred",
			Action:  "Please try again or check the server logs",
			Code:    "ERR000",
		}, http.StatusInternalServerError
	}
}

func parseDetail(err error) string {
	var pe *table.ParseError
	if errors.As(err, &pe) {
		return ": " + pe.Error()
	}
	return ""
}
