package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mbocsi/silaevents/proto"
)

const (
	flagRequestID        = "request-id"
	flagReturnCode       = "return-code"
	flagMessage          = "message"
	flagDuration         = "duration"
	flagDeviceClass      = "device-class"
	flagResponseData     = "response-data"
	flagParam            = "param"
	flagDataValue        = "data-value"
	flagContinuationTask = "continuation-task"
	flagDeviceID         = "device-id"
	flagDescription      = "description"
	flagShowEnvelope     = "show-envelope"
)

// NewSendCmd groups one subcommand per event operation.
func NewSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send an event to the configured event receiver",
	}
	cmd.PersistentFlags().Bool(flagShowEnvelope, false, "print the SOAP envelope that was sent")
	cmd.AddCommand(
		newSendResponseCmd(),
		newSendDataCmd(),
		newSendErrorCmd(),
		newSendStatusCmd(),
	)
	return cmd
}

func newSendResponseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "response",
		Short: "Send a ResponseEvent",
		Example: `  silaevent send response --request-id 1 --return-code 1 --message "Python client test" \
    --param Message="Hello from Python client"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			id, _ := flags.GetInt(flagRequestID)
			rv, err := returnValueFromFlags(flags)
			if err != nil {
				return err
			}
			ev := proto.ResponseEvent{RequestID: id, ReturnValue: rv}

			data, _ := flags.GetString(flagResponseData)
			params, _ := flags.GetStringArray(flagParam)
			if data != "" && len(params) > 0 {
				return fmt.Errorf("--%s and --%s are mutually exclusive", flagResponseData, flagParam)
			}
			if len(params) > 0 {
				ps, err := parseParams(params)
				if err != nil {
					return err
				}
				if data, err = ps.ResponseData(); err != nil {
					return err
				}
			}
			ev.ResponseData = optional(flags, flagResponseData, data, len(params) > 0)
			return sendEvent(cmd, ev)
		},
	}
	addRequestIDFlag(cmd)
	addReturnValueFlags(cmd)
	cmd.Flags().String(flagResponseData, "", "raw responseData XML")
	cmd.Flags().StringArray(flagParam, nil, "response parameter as name[:type]=value, repeatable")
	return cmd
}

func newSendDataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Send a DataEvent",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			id, _ := flags.GetInt(flagRequestID)
			value, _ := flags.GetString(flagDataValue)
			ev := proto.DataEvent{
				RequestID: id,
				DataValue: optional(flags, flagDataValue, value, false),
			}
			return sendEvent(cmd, ev)
		},
	}
	addRequestIDFlag(cmd)
	cmd.Flags().String(flagDataValue, "", "dataValue payload")
	return cmd
}

func newSendErrorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "error",
		Short: "Send an ErrorEvent",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			id, _ := flags.GetInt(flagRequestID)
			rv, err := returnValueFromFlags(flags)
			if err != nil {
				return err
			}
			task, _ := flags.GetString(flagContinuationTask)
			ev := proto.ErrorEvent{
				RequestID:        id,
				ReturnValue:      rv,
				ContinuationTask: optional(flags, flagContinuationTask, task, false),
			}
			return sendEvent(cmd, ev)
		},
	}
	addRequestIDFlag(cmd)
	addReturnValueFlags(cmd)
	cmd.Flags().String(flagContinuationTask, "", "continuationTask payload")
	return cmd
}

func newSendStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Send a StatusEvent",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			rv, err := returnValueFromFlags(flags)
			if err != nil {
				return err
			}
			deviceID, _ := flags.GetString(flagDeviceID)
			description, _ := flags.GetString(flagDescription)
			ev := proto.StatusEvent{
				DeviceID:         optional(flags, flagDeviceID, deviceID, false),
				ReturnValue:      rv,
				EventDescription: optional(flags, flagDescription, description, false),
			}
			return sendEvent(cmd, ev)
		},
	}
	addReturnValueFlags(cmd)
	cmd.Flags().String(flagDeviceID, "", "deviceId of the reporting device")
	cmd.Flags().String(flagDescription, "", "eventDescription payload")
	return cmd
}

func addRequestIDFlag(cmd *cobra.Command) {
	cmd.Flags().Int(flagRequestID, 0, "requestId the event refers to")
	_ = cmd.MarkFlagRequired(flagRequestID)
}

func addReturnValueFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Int(flagReturnCode, 0, "returnCode; the returnValue is omitted unless set")
	flags.String(flagMessage, "", "returnValue message")
	flags.String(flagDuration, "", "returnValue duration, Go (1m30s) or ISO 8601 (PT1M30S)")
	flags.Int(flagDeviceClass, proto.DefaultDeviceClass, "returnValue deviceClass")
}

// returnValueFromFlags returns nil unless --return-code was given.
func returnValueFromFlags(flags *pflag.FlagSet) (*proto.ReturnValue, error) {
	if !flags.Changed(flagReturnCode) {
		for _, name := range []string{flagMessage, flagDuration, flagDeviceClass} {
			if flags.Changed(name) {
				return nil, fmt.Errorf("--%s requires --%s", name, flagReturnCode)
			}
		}
		return nil, nil
	}
	code, _ := flags.GetInt(flagReturnCode)
	class, _ := flags.GetInt(flagDeviceClass)
	rv := proto.NewReturnValue(code).WithDeviceClass(class)
	if flags.Changed(flagMessage) {
		msg, _ := flags.GetString(flagMessage)
		rv = rv.WithMessage(msg)
	}
	if flags.Changed(flagDuration) {
		raw, _ := flags.GetString(flagDuration)
		d, err := normalizeDuration(raw)
		if err != nil {
			return nil, err
		}
		rv = rv.WithDuration(d)
	}
	return &rv, nil
}

// optional distinguishes an absent flag from an explicitly empty one.
func optional(flags *pflag.FlagSet, name, value string, force bool) *string {
	if !force && !flags.Changed(name) {
		return nil
	}
	return proto.String(value)
}

func sendEvent(cmd *cobra.Command, ev proto.Event) error {
	c, err := newClient(configFrom(cmd))
	if err != nil {
		return err
	}
	resp, sendErr := c.Send(cmd.Context(), ev)

	out := cmd.OutOrStdout()
	if show, _ := cmd.Flags().GetBool(flagShowEnvelope); show {
		if env := c.LastEnvelope(); env != nil {
			printSection(out, "Sent envelope:", string(env))
		}
	}
	if sendErr != nil {
		return sendErr
	}
	printSection(out, "Response:", resp)
	return nil
}

func printSection(w io.Writer, title, body string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, body)
}
