package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"matchbook/internal/services"
)

// StatementHandler exposes operator actions on statement files.
type StatementHandler struct {
	statementService services.StatementServicer
}

// NewStatementHandler creates a new StatementHandler.
func NewStatementHandler(statementService services.StatementServicer) *StatementHandler {
	return &StatementHandler{statementService: statementService}
}

// GetStatement returns a statement file record.
func (h *StatementHandler) GetStatement(c *gin.Context) {
	id, err := requirePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	file, err := h.statementService.GetStatement(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"statement": file})
}

// DeleteStatement removes a statement file record. The transactions ingested
// from it are kept and only lose the back-reference.
func (h *StatementHandler) DeleteStatement(c *gin.Context) {
	id, err := requirePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.statementService.DeleteStatement(id); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Statement deleted successfully"})
}
