package controllers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"petfinder/internal/encoder"
	"petfinder/internal/models/request_models"
	"petfinder/internal/services"
	"petfinder/pkg/utils"
)

// Multipart uploads may use either field name.
var uploadFields = []string{"image", "file"}

// maxBodyBytes fits a MaxImageBytes photo after base64 inflation plus the
// other request fields.
const maxBodyBytes = encoder.MaxImageBytes*4/3 + 1<<20

type SearchController struct {
	searchService services.SearchServiceInterface
	log           *zap.Logger
}

func NewSearchController(searchService services.SearchServiceInterface, log *zap.Logger) *SearchController {
	return &SearchController{searchService: searchService, log: log}
}

// Search godoc
// @Summary Find similar pets
// @Description Accepts a photo (multipart upload or base64 JSON) or a text query plus optional declared attributes and returns ranked candidate advertisements
// @Tags Search
// @Accept json,mpfd
// @Produce json
// @Param request body request_models.SearchRequest false "Search payload"
// @Param image formData file false "Photo"
// @Success 200 {object} response_models.SearchResponse
// @Failure 400 {object} utils.APIResponse
// @Failure 500 {object} utils.APIResponse
// @Router /search [post]
func (s *SearchController) Search(c *gin.Context) {
	var (
		req request_models.SearchRequest
		in  services.SearchInput
	)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			s.badPayload(c, err)
			return
		}
		img, err := readUpload(c)
		if err != nil {
			utils.HandleServiceError(c, s.log, err)
			return
		}
		if img != nil {
			in.Image = img
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		s.badPayload(c, err)
		return
	}

	in.Payload = req.Image
	in.QueryText = req.QueryText
	in.Species = req.Species
	in.Breed = req.Breed
	in.BreedConfidence = req.BreedConfidence
	in.Color = req.Color
	in.Features = splitFeatures(req.Features)
	in.Status = req.Status

	resp, err := s.searchService.Search(c.Request.Context(), in)
	if err != nil {
		utils.HandleServiceError(c, s.log, err)
		return
	}

	utils.RespondSuccess(c, resp, "Search completed successfully")
}

func (s *SearchController) badPayload(c *gin.Context, err error) {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		utils.HandleServiceError(c, s.log, utils.ErrImageTooLarge)
		return
	}
	utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
}

func readUpload(c *gin.Context) (encoder.Image, error) {
	var header *multipart.FileHeader
	for _, field := range uploadFields {
		if fh, err := c.FormFile(field); err == nil {
			header = fh
			break
		}
	}
	if header == nil {
		return nil, nil
	}
	if header.Size > encoder.MaxImageBytes {
		return nil, utils.ErrImageTooLarge
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrBadInput, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, encoder.MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrBadInput, err)
	}
	if len(data) > encoder.MaxImageBytes {
		return nil, utils.ErrImageTooLarge
	}
	if len(data) == 0 {
		return nil, utils.ErrImageMissing
	}
	return encoder.RawBytes(data), nil
}

// splitFeatures accepts repeated values as well as comma separated lists.
func splitFeatures(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
