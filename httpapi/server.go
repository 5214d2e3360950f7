package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/ghiac/chatforge/attachments"
	"github.com/ghiac/chatforge/convstore"
	"github.com/ghiac/chatforge/orchestrator"
	"github.com/ghiac/chatforge/status"
	"github.com/ghiac/chatforge/vectorstore"
)

// Server holds every collaborator the HTTP layer calls into. It owns no
// state of its own beyond wiring — every operation delegates to the
// subsystem that implements it.
type Server struct {
	Orchestrator *orchestrator.Orchestrator
	Store        convstore.Store
	Files        *vectorstore.FileManager
	Attachments  *attachments.Handler
	Status       *status.Manager
}

// New wires a Server from its collaborators.
func New(orch *orchestrator.Orchestrator, store convstore.Store, files *vectorstore.FileManager, attach *attachments.Handler, statusMgr *status.Manager) *Server {
	return &Server{Orchestrator: orch, Store: store, Files: files, Attachments: attach, Status: statusMgr}
}

// RegisterRoutes registers the full external-interfaces table (§6) on
// router, the way the teacher's routes.go registers its debug routes: one
// handler method per route, gin.H{} JSON bodies.
func (s *Server) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", s.handleHealthz)

	api := router.Group("/api/v1", s.requireUser)

	api.POST("/chat", s.handleChat)
	api.GET("/status/:session_id", s.handleStatusPoll)

	api.GET("/conversations", s.handleListConversations)
	api.GET("/conversations/folders", s.handleListFolders)
	api.POST("/conversations/folders", s.handleCreateFolder)
	api.DELETE("/conversations/folders/:id", s.handleDeleteFolder)
	api.GET("/conversations/:id", s.handleGetConversation)
	api.POST("/conversations/:id/update_title", s.handleUpdateTitle)
	api.DELETE("/conversations/:id", s.handleDeleteConversation)

	api.POST("/system_messages", s.handleCreateSystemMessage)
	api.GET("/system_messages", s.handleListSystemMessages)
	api.GET("/system_messages/:id", s.handleGetSystemMessage)
	api.PUT("/system_messages/:id", s.handleUpdateSystemMessage)
	api.DELETE("/system_messages/:id", s.handleDeleteSystemMessage)
	api.POST("/system_messages/:id/toggle-search", s.handleToggleSearch)

	api.POST("/vector-files/upload", s.handleUploadVectorFile)
	api.GET("/vector-files/:id/original", s.handleVectorFileOriginal)
	api.GET("/vector-files/:id/serve", s.handleVectorFileServe)
	api.GET("/vector-files/:id/processed", s.handleVectorFileProcessed)
	api.DELETE("/vector-files/:id", s.handleDeleteVectorFile)
	api.GET("/vector-files/list/:system_message_id", s.handleListVectorFiles)

	api.POST("/session-attachments/upload", s.handleUploadAttachment)
	api.DELETE("/session-attachments/:id/remove", s.handleRemoveAttachment)

	router.GET("/ws/chat/status", s.handleStatusSocket)
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
