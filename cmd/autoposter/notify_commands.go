package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"autoposter/internal/notifications"
	"autoposter/internal/pipeline"
)

func newWebhookCommand(ctx *commandContext) *cobra.Command {
	webhookCmd := &cobra.Command{
		Use:   "webhook",
		Short: "Webhook delivery utilities",
	}

	var url string
	testCmd := &cobra.Command{
		Use:   "test",
		Short: "Send one webhook.test envelope",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *pipeline.Runtime) error {
				result := rt.Webhook().SendTest(cmd.Context(), url)
				if ctx.JSONMode() {
					if err := writeJSON(cmd, result); err != nil {
						return err
					}
				} else {
					msg := fmt.Sprintf("HTTP %d in %.0fms", result.StatusCode, result.ResponseTimeMS)
					if !result.Success {
						msg = result.Error
					}
					newStatusPrinter(cmd.OutOrStdout()).line("Webhook", passFail(result.Success), msg)
				}
				if !result.Success {
					return errors.New("webhook test failed")
				}
				return nil
			})
		},
	}
	testCmd.Flags().StringVar(&url, "url", "", "Override the configured webhook URL")
	webhookCmd.AddCommand(testCmd)
	return webhookCmd
}

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	notifyCmd := &cobra.Command{
		Use:   "notify",
		Short: "Notification utilities",
	}
	notifyCmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Send a test notification to the configured ntfy topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *pipeline.Runtime) error {
				notifier := rt.Notifier()
				if !notifications.Delivers(notifier) {
					return errors.New("ntfy topic not configured (set notifications.ntfy_topic)")
				}
				if err := notifier.Publish(cmd.Context(), notifications.EventTest, notifications.Payload{}); err != nil {
					return fmt.Errorf("send test notification: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
				return nil
			})
		},
	})
	return notifyCmd
}
