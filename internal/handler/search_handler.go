package handler

import (
	"strconv"

	"teamflow/internal/service"
	"teamflow/pkg/response"

	"github.com/gin-gonic/gin"
)

type SearchHandler struct {
	service *service.SearchService
}

func NewSearchHandler(s *service.SearchService) *SearchHandler {
	return &SearchHandler{service: s}
}

// Search GET /search?q=&username=&channel_id=&date_from=&date_to=&include_threads=
func (h *SearchHandler) Search(c *gin.Context) {
	q := service.SearchQuery{
		Keyword:  c.Query("q"),
		Username: c.Query("username"),
		DateFrom: c.Query("date_from"),
		DateTo:   c.Query("date_to"),
	}
	if v := c.Query("channel_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil || id == 0 {
			response.BadRequest(c, "invalid channel_id")
			return
		}
		channelID := uint(id)
		q.ChannelID = &channelID
	}
	if v := c.Query("include_threads"); v != "" {
		include, err := strconv.ParseBool(v)
		if err != nil {
			response.BadRequest(c, "invalid include_threads")
			return
		}
		q.IncludeThreads = &include
	}

	results, err := h.service.Search(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	if results == nil {
		results = []service.SearchResult{}
	}
	response.List(c, results, len(results))
}
