package controllers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"petfinder/internal/services"
	"petfinder/pkg/utils"
)

type IndexController struct {
	indexService services.IndexServiceInterface
	log          *zap.Logger
}

func NewIndexController(indexService services.IndexServiceInterface, log *zap.Logger) *IndexController {
	return &IndexController{indexService: indexService, log: log}
}

// Status godoc
// @Summary Vector index status
// @Tags Index
// @Produce json
// @Success 200 {object} response_models.IndexStatus
// @Router /index/status [get]
func (ic *IndexController) Status(c *gin.Context) {
	utils.RespondSuccess(c, ic.indexService.Status(), "Index status fetched successfully")
}

// Rebuild godoc
// @Summary Rebuild the vector index
// @Description Re-encodes every indexable advertisement photo. Requires an admin token.
// @Tags Index
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response_models.BuildInfo
// @Failure 409 {object} utils.APIResponse
// @Failure 500 {object} utils.APIResponse
// @Router /index/rebuild [post]
func (ic *IndexController) Rebuild(c *gin.Context) {
	info, err := ic.indexService.Rebuild(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, ic.log, err)
		return
	}

	utils.RespondSuccess(c, info, "Index rebuilt successfully")
}
