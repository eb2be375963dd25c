package commands

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"petfinder/internal/models/request_models"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find pets similar to a photo or a description",
	Long: `Search the index with a photo (--image) or free text (--text).

Example:
  petctl search --image lost-cat.jpg --species cat --status found
  petctl search --image husky.png --breed husky --breed-confidence 0.9
  petctl search --text "grey husky with blue eyes"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := searchRequestFromFlags(cmd)
		if err != nil {
			return err
		}
		data, err := newClient().do(cmd.Context(), http.MethodPost, "/search", req)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), data)
	},
}

func init() {
	addSearchFlags(searchCmd.Flags())
}

func addSearchFlags(f *pflag.FlagSet) {
	f.String("image", "", "path to a photo")
	f.String("text", "", "free text query")
	f.String("species", "", "declared species (cat, dog, ...)")
	f.String("breed", "", "declared breed")
	f.Float64("breed-confidence", -1, "confidence of the declared breed, 0..1 (default: fully trusted)")
	f.String("color", "", "declared color")
	f.StringSlice("features", nil, "special features, comma separated")
	f.String("status", "", "restrict to lost or found")
}

func searchRequestFromFlags(cmd *cobra.Command) (request_models.SearchRequest, error) {
	f := cmd.Flags()
	var req request_models.SearchRequest

	path, _ := f.GetString("image")
	req.QueryText, _ = f.GetString("text")
	if path == "" && req.QueryText == "" {
		return req, fmt.Errorf("--image or --text is required")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return req, fmt.Errorf("failed to read image: %w", err)
		}
		req.Image = dataURL(path, data)
	}

	req.Species, _ = f.GetString("species")
	req.Breed, _ = f.GetString("breed")
	if conf, _ := f.GetFloat64("breed-confidence"); conf >= 0 {
		if conf > 1 {
			return req, fmt.Errorf("--breed-confidence must be between 0 and 1")
		}
		req.BreedConfidence = &conf
	}
	req.Color, _ = f.GetString("color")
	req.Features, _ = f.GetStringSlice("features")
	req.Status, _ = f.GetString("status")
	return req, nil
}

func dataURL(path string, data []byte) string {
	mt := mime.TypeByExtension(filepath.Ext(path))
	if mt == "" {
		mt = http.DetectContentType(data)
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(data)
}
