package main

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/palloc/palloc"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newGPACmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "gpa",
		Short: "route odd-sized types through the general-purpose allocator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGPA(asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit sub-pool stats as JSON")
	return cmd
}

func runGPA(asJSON bool) error {
	type weirdStruct struct {
		Raw [48]byte
	}

	gpa, err := palloc.NewGeneralPurposeAllocator(palloc.DefaultAllocatorConfig())
	if err != nil {
		return err
	}
	defer gpa.Close()

	for i := 0; i < 10; i++ {
		h, err := palloc.New[weirdStruct](gpa)
		if err != nil {
			return err
		}
		fmt.Printf("index => %d resolution => %p\n", h.Index(), h.Resolve())
	}

	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(gpa.Stats())
	}
	for _, s := range gpa.Stats() {
		fmt.Printf("class %3d: live %d/%d (%d bytes mapped)\n", s.Class, s.Live, s.Capacity, s.Bytes)
	}
	return nil
}
