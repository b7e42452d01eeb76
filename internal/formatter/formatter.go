// package formatter renders playlist track lists as CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/desertthunder/sunnify/internal/models"
	"github.com/desertthunder/sunnify/internal/shared"
)

// Format is an output format accepted by [Render].
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// Formats lists the supported formats.
var Formats = []Format{FormatText, FormatJSON, FormatCSV, FormatMarkdown}

// ParseFormat maps a flag value to a [Format]. "txt" and "md" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
	}
}

// Render writes the playlist to w in the given format.
func Render(w io.Writer, pl *models.Playlist, format Format) error {
	var (
		data []byte
		err  error
	)

	switch format {
	case FormatJSON:
		data, err = ExportToJSON(pl)
	case FormatCSV:
		data, err = ExportToCSV(pl)
	case FormatMarkdown:
		data, err = ExportToMarkdown(pl)
	case FormatText, "":
		data, err = ExportToText(pl)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// ExportToCSV converts a Playlist to CSV format with columns: ID, Title, Artists, Album, Release Date, Cover, Download Link
func ExportToCSV(pl *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artists", "Album", "Release Date", "Cover", "Download Link"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range pl.Tracks {
		record := []string{
			track.ID,
			track.Title,
			track.Artists,
			track.Album,
			track.ReleaseDate,
			track.Cover,
			track.DownloadLink,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a Playlist to Markdown, using the first track's cover as the header image
func ExportToMarkdown(pl *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", playlistName(pl)))

	if cover := firstCover(pl); cover != "" {
		buf.WriteString(fmt.Sprintf("![Cover](%s)\n\n", cover))
	}

	if pl.SourceURL != "" {
		buf.WriteString(fmt.Sprintf("**Source**: %s\n", pl.SourceURL))
	}
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(pl.Tracks)))

	buf.WriteString("## Tracks\n\n")
	for i, track := range pl.Tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		releasePart := ""
		if track.ReleaseDate != "" {
			releasePart = fmt.Sprintf(" [%s]", track.ReleaseDate)
		}
		title := track.Title
		if track.DownloadLink != "" {
			title = fmt.Sprintf("[%s](%s)", track.Title, track.DownloadLink)
		}
		buf.WriteString(fmt.Sprintf("%d. %s%s%s%s\n", i+1, artistPrefix(track), title, albumPart, releasePart))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a Playlist to plain text format
func ExportToText(pl *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", playlistName(pl)))
	if pl.SourceURL != "" {
		buf.WriteString(fmt.Sprintf("Source: %s\n", pl.SourceURL))
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(pl.Tracks)))

	for i, track := range pl.Tracks {
		buf.WriteString(fmt.Sprintf("%d. %s%s\n", i+1, artistPrefix(track), track.Title))
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a Playlist to indented JSON using the scrape service's field names
func ExportToJSON(pl *models.Playlist) ([]byte, error) {
	data, err := shared.MarshalJSON(pl, true)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal playlist: %w", err)
	}
	return append(data, '\n'), nil
}

func playlistName(pl *models.Playlist) string {
	if pl.Name == "" {
		return "Playlist"
	}
	return pl.Name
}

func firstCover(pl *models.Playlist) string {
	for _, t := range pl.Tracks {
		if t.Cover != "" {
			return t.Cover
		}
	}
	return ""
}

func artistPrefix(t models.Track) string {
	if t.Artists == "" {
		return ""
	}
	return t.Artists + " - "
}
