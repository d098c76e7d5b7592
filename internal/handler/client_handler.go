package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hexavel/clientshare/internal/pkg/errcode"
	"github.com/hexavel/clientshare/internal/pkg/response"
	"github.com/hexavel/clientshare/internal/service"
)

type ClientHandler struct {
	clients *service.ClientService
}

func NewClientHandler(clients *service.ClientService) *ClientHandler {
	return &ClientHandler{clients: clients}
}

type clientRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *ClientHandler) Create(c *gin.Context) {
	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	client, err := h.clients.Create(c.Request.Context(), getUserID(c), service.ClientInput{Name: req.Name, Email: req.Email})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, client)
}

func (h *ClientHandler) Get(c *gin.Context) {
	client, err := h.clients.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, client)
}

func (h *ClientHandler) List(c *gin.Context) {
	items, err := h.clients.List(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": items})
}

func (h *ClientHandler) Update(c *gin.Context) {
	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	client, err := h.clients.Update(c.Request.Context(), getUserID(c), c.Param("id"), service.ClientInput{Name: req.Name, Email: req.Email})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, client)
}

func (h *ClientHandler) Delete(c *gin.Context) {
	if err := h.clients.Delete(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
