package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

type predictionView struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"`
	Output      string  `json:"output,omitempty"`
	Error       string  `json:"error,omitempty"`
	PredictTime float64 `json:"predictTimeSeconds,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <prediction-id>",
		Short: "Show the provider status of a prediction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			client, err := ctx.providerClient(cmd)
			if err != nil {
				return err
			}
			pred, err := client.GetPrediction(cmd.Context(), client.PredictionURL(id))
			if err != nil {
				return fmt.Errorf("get prediction %s: %w", id, err)
			}
			view := predictionView{
				ID:          pred.ID,
				Status:      pred.Status,
				Output:      pred.OutputURL(),
				Error:       pred.ErrorMessage(),
				PredictTime: pred.Metrics.PredictTime,
			}
			if view.ID == "" {
				view.ID = id
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, view)
			}
			rows := [][]string{
				{"Prediction", view.ID},
				{"Status", view.Status},
			}
			if view.Output != "" {
				rows = append(rows, []string{"Output", view.Output})
			}
			if view.Error != "" {
				rows = append(rows, []string{"Error", view.Error})
			}
			if view.PredictTime > 0 {
				rows = append(rows, []string{"Predict time", strconv.FormatFloat(view.PredictTime, 'f', 1, 64) + "s"})
			}
			printKeyValues(cmd, []string{"Field", "Value"}, rows)
			return nil
		},
	}
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <prediction-id>",
		Short: "Ask the provider to stop a prediction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			client, err := ctx.providerClient(cmd)
			if err != nil {
				return err
			}
			if err := client.CancelPrediction(cmd.Context(), client.CancelURL(id)); err != nil {
				return fmt.Errorf("cancel prediction %s: %w", id, err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{"id": id, "canceled": true})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancel requested for prediction %s\n", id)
			return nil
		},
	}
}
