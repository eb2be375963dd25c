package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"petfinder/internal/models/request_models"
	"petfinder/internal/services"
	"petfinder/pkg/utils"
)

type AccountController struct {
	accountService services.AccountServiceInterface
	log            *zap.Logger
}

func NewAccountController(accountService services.AccountServiceInterface, log *zap.Logger) *AccountController {
	return &AccountController{accountService: accountService, log: log}
}

// Login godoc
// @Summary Operator login
// @Description Exchanges operator credentials for a bearer token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body request_models.LoginRequest true "Credentials"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Failure 401 {object} utils.APIResponse
// @Router /auth/login [post]
func (a *AccountController) Login(c *gin.Context) {
	var req request_models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	token, err := a.accountService.Login(c.Request.Context(), req)
	if err != nil {
		utils.HandleServiceError(c, a.log, err)
		return
	}

	utils.RespondSuccess(c, gin.H{"token": token}, "Login successful")
}
