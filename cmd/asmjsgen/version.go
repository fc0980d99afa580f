package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Maher4Ever/emscripten-fastcomp/internal/version"
)

type asmjsVersionInfo struct {
	Version    string
	GitCommit  string
	GitMessage string
	BuildDate  string
}

type asmjsVersionOptions struct {
	format      string
	showHash    bool
	showMessage bool
	showDate    bool
}

type asmjsVersionPayload struct {
	Tool       string `json:"tool"`
	Version    string `json:"version"`
	Tagline    string `json:"tagline"`
	GitCommit  string `json:"git_commit,omitempty"`
	GitMessage string `json:"git_message,omitempty"`
	BuildDate  string `json:"build_date,omitempty"`
}

const asmjsVersionTagline = "legalized IR in, asm.js out"

var (
	asmjsVersionFormat      string
	asmjsVersionShowHash    bool
	asmjsVersionShowMessage bool
	asmjsVersionShowDate    bool
	asmjsVersionShowFull    bool
)

func init() {
	asmjsVersionCmd.Flags().BoolVar(&asmjsVersionShowHash, "hash", false, "include git commit hash")
	asmjsVersionCmd.Flags().BoolVar(&asmjsVersionShowMessage, "message", false, "include git commit message")
	asmjsVersionCmd.Flags().BoolVar(&asmjsVersionShowDate, "date", false, "include build timestamp")
	asmjsVersionCmd.Flags().BoolVar(&asmjsVersionShowFull, "full", false, "show every recorded bit of build metadata")
	asmjsVersionCmd.Flags().StringVar(&asmjsVersionFormat, "format", "pretty", "output format (pretty|json)")
}

var asmjsVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show asmjsgen build fingerprints",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := asmjsVersionOptions{
			format:      strings.ToLower(asmjsVersionFormat),
			showHash:    asmjsVersionShowHash || asmjsVersionShowFull,
			showMessage: asmjsVersionShowMessage || asmjsVersionShowFull,
			showDate:    asmjsVersionShowDate || asmjsVersionShowFull,
		}

		switch opts.format {
		case "pretty", "json":
			// supported
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", asmjsVersionFormat)
		}

		info := collectAsmjsVersionInfo()
		if opts.format == "json" {
			return renderAsmjsVersionJSON(cmd.OutOrStdout(), info, opts)
		}

		renderAsmjsVersionPretty(cmd.OutOrStdout(), info, opts)
		return nil
	},
}

func collectAsmjsVersionInfo() asmjsVersionInfo {
	v := strings.TrimSpace(version.Version)
	if v == "" {
		v = "dev"
	}
	return asmjsVersionInfo{
		Version:    v,
		GitCommit:  strings.TrimSpace(version.GitCommit),
		GitMessage: strings.TrimSpace(version.GitMessage),
		BuildDate:  strings.TrimSpace(version.BuildDate),
	}
}

func renderAsmjsVersionPretty(out io.Writer, info asmjsVersionInfo, opts asmjsVersionOptions) {
	fmt.Fprintf(out, "asmjsgen %s - %s\n", info.Version, asmjsVersionTagline)
	if opts.showHash {
		fmt.Fprintf(out, "commit: %s\n", asmjsValueOrUnknown(info.GitCommit))
	}
	if opts.showMessage {
		fmt.Fprintf(out, "message: %s\n", asmjsValueOrUnknown(info.GitMessage))
	}
	if opts.showDate {
		fmt.Fprintf(out, "built:  %s\n", asmjsValueOrUnknown(info.BuildDate))
	}
	if !opts.showHash && !opts.showMessage && !opts.showDate {
		fmt.Fprintln(out, "set --hash, --message, --date, or --full for more build trivia")
	}
}

func renderAsmjsVersionJSON(out io.Writer, info asmjsVersionInfo, opts asmjsVersionOptions) error {
	payload := asmjsVersionPayload{
		Tool:    "asmjsgen",
		Version: info.Version,
		Tagline: asmjsVersionTagline,
	}
	if opts.showHash {
		payload.GitCommit = asmjsValueOrUnknown(info.GitCommit)
	}
	if opts.showMessage {
		payload.GitMessage = asmjsValueOrUnknown(info.GitMessage)
	}
	if opts.showDate {
		payload.BuildDate = asmjsValueOrUnknown(info.BuildDate)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func asmjsValueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
