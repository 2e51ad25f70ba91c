package main

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"photorestore/internal/domain"
	"photorestore/internal/restore"
)

// pollSleep overrides the wait between status polls (tests).
var pollSleep func(time.Duration)

type restoreReport struct {
	Success        bool   `json:"success"`
	PredictionID   string `json:"predictionId"`
	OutputURL      string `json:"restoredImageUrl,omitempty"`
	Attempts       int    `json:"attempts"`
	ElapsedSeconds int    `json:"elapsedSeconds"`
	Reason         string `json:"reason,omitempty"`
	Message        string `json:"message,omitempty"`
}

func newRestoreCommand(ctx *commandContext) *cobra.Command {
	var mediaType string
	cmd := &cobra.Command{
		Use:   "restore <image>",
		Short: "Restore a local photo and wait for the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			img, err := loadImage(args[0], mediaType)
			if err != nil {
				return err
			}
			client, err := ctx.providerClient(cmd)
			if err != nil {
				return err
			}
			svc := restore.NewService(restore.Options{
				Provider:     client,
				ModelVersion: cfg.Provider.ModelVersion,
				Config:       cfg.Restore,
				Logger:       ctx.logger(cmd),
				Sleep:        pollSleep,
			})

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			res, err := svc.Restore(runCtx, "cli", img)
			if err != nil {
				return err
			}
			report := restoreReport{
				Success:        res.Succeeded(),
				PredictionID:   res.JobID,
				OutputURL:      res.OutputURL,
				Attempts:       res.Attempts,
				ElapsedSeconds: int(res.Elapsed / time.Second),
			}
			if res.Failure != nil {
				report.Reason = string(res.Failure.Reason)
				report.Message = res.Failure.Message
			}

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printKeyValues(cmd, []string{"Field", "Value"}, reportRows(report))
			}
			if !report.Success {
				return errors.New(report.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mediaType, "type", "", "Media type of the image (detected when empty)")
	return cmd
}

func reportRows(r restoreReport) [][]string {
	rows := [][]string{
		{"Prediction", r.PredictionID},
		{"Success", yesNo(r.Success)},
		{"Attempts", strconv.Itoa(r.Attempts)},
		{"Processing time", fmt.Sprintf("%d seconds", r.ElapsedSeconds)},
	}
	if r.OutputURL != "" {
		rows = append(rows, []string{"Output", r.OutputURL})
	}
	if r.Reason != "" {
		rows = append(rows, []string{"Reason", r.Reason}, []string{"Message", r.Message})
	}
	return rows
}

func loadImage(path, mediaType string) (*domain.UploadedImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" {
		mediaType = mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	}
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}
	return &domain.UploadedImage{
		Filename:  filepath.Base(path),
		MediaType: mediaType,
		Data:      data,
	}, nil
}
