package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go-openimage"
	"github.com/anatolykoptev/go-openimage/internal/app"
)

type searchOutput struct {
	Query               string                  `json:"query"`
	EntityType          openimage.EntityType    `json:"entity_type"`
	TotalResults        int                     `json:"total_results"`
	FaceFilterApplied   bool                    `json:"face_filter_applied"`
	GenderFilterApplied bool                    `json:"gender_filter_applied"`
	SearchID            string                  `json:"search_id"`
	Images              []openimage.ImageRecord `json:"images"`
}

func (c *cli) searchCmd() *cobra.Command {
	var (
		req    openimage.SearchRequest
		noFace bool
		output string
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search all available sources for images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Query = strings.Join(args, " ")
			requireFace := !noFace
			req.RequireFace = &requireFace
			if err := req.Normalize(); err != nil {
				return err
			}
			return c.withApp(func(a *app.App) error {
				stderr := cmd.ErrOrStderr()
				entity := req.Entity()
				fmt.Fprintf(stderr, "Searching for %q (entity type: %s)...\n", req.Query, entity)
				fmt.Fprintf(stderr, "Available sources: %s\n", strings.Join(a.Finder.AvailableSources(), ", "))

				res, err := a.Finder.FindImagesDetailed(cmd.Context(), req.Query, entity, req.MaxResults,
					req.FaceRequired() && entity == openimage.EntityPerson)
				if err != nil {
					return err
				}
				images := res.Images
				if images == nil {
					images = []openimage.ImageRecord{}
				}
				data, err := json.MarshalIndent(searchOutput{
					Query:               res.Query,
					EntityType:          res.EntityType,
					TotalResults:        len(images),
					FaceFilterApplied:   res.FaceFilterApplied,
					GenderFilterApplied: res.GenderFilterApplied,
					SearchID:            res.SearchID,
					Images:              images,
				}, "", "  ")
				if err != nil {
					return err
				}

				if output != "" {
					if err := os.WriteFile(output, append(data, '\n'), 0o644); err != nil {
						return fmt.Errorf("write results: %w", err)
					}
					fmt.Fprintf(stderr, "Results saved to %s\n", output)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), string(data))
				}
				fmt.Fprintf(stderr, "Found %d license-safe images\n", len(images))
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVarP(&req.EntityType, "entity-type", "e", string(openimage.EntityPerson), "Entity type: person, place, thing or other")
	f.IntVarP(&req.MaxResults, "max-results", "n", openimage.DefaultRequestMaxResults, "Maximum number of results (1-100)")
	f.BoolVar(&noFace, "no-face-filter", false, "Disable the face filter for person searches")
	f.StringVarP(&output, "output", "o", "", "Write JSON results to this file instead of stdout")
	return cmd
}
