package cmd

import (
	"fmt"

	"github.com/rohan1205/NeuraAttend/internal/config"
	"github.com/spf13/cobra"
)

// mustGetBool gets a bool flag value or panics if the flag doesn't exist.
// This is appropriate for flags defined in init() - errors indicate programming bugs.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetInt gets an int flag value or panics if the flag doesn't exist.
func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetString gets a string flag value or panics if the flag doesn't exist.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetFloat64 gets a float64 flag value or panics if the flag doesn't exist.
func mustGetFloat64(cmd *cobra.Command, name string) float64 {
	val, err := cmd.Flags().GetFloat64(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// applyOverrides copies explicitly set command-line flags over the loaded
// configuration. Flags left at their defaults do not override env or file values.
func applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("threshold") {
		cfg.Matcher.Threshold = mustGetFloat64(cmd, "threshold")
	}
	if flags.Changed("confidence") {
		cfg.Detector.Confidence = mustGetFloat64(cmd, "confidence")
	}
	if flags.Changed("gallery") {
		cfg.Gallery.Source = config.GallerySourceFile
		cfg.Gallery.Path = mustGetString(cmd, "gallery")
	}
	if flags.Changed("port") {
		cfg.Web.Port = mustGetInt(cmd, "port")
	}
	if flags.Changed("host") {
		cfg.Web.Host = mustGetString(cmd, "host")
	}
}
