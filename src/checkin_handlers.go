package main

import (
	"fmt"
	"net/http"
	"strconv"
	"ticketflow/src/common"
	"ticketflow/src/config"
	"ticketflow/src/lib"
	"ticketflow/src/types"

	"github.com/gin-gonic/gin"
)

// debounceScan suppresses rapid re-scans of the same code. It is purely
// a UX guard against scanner double-fire; the conditional update in the
// core is what actually keeps admission single. With no redis configured
// every scan goes through.
func debounceScan(ctx *gin.Context, code string) bool {
	rdb := lib.GetRedisClient()
	if rdb == nil {
		return false
	}
	key := fmt.Sprintf("checkin:debounce:%s", code)
	ok, err := rdb.SetNX(ctx.Request.Context(), key, "1", config.CheckInDebounceWindow()).Result()
	if err != nil {
		return false
	}
	return !ok
}

func checkinHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/checkin", func(ctx *gin.Context) {
			var body types.CheckInRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if debounceScan(ctx, body.Code) {
				ctx.JSON(http.StatusTooManyRequests, gin.H{
					"error": fmt.Sprintf("code %s was just scanned, slow down", body.Code),
				})
				return
			}
			result, err := common.ValidateTicket(ctx.Request.Context(), &body)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": result})
		}).
		POST("/tickets/:id/undo-checkin", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			ticket, err := common.UndoCheckIn(ctx.Request.Context(), params.ID)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ticket})
		}).
		GET("/checkins/recent", func(ctx *gin.Context) {
			eventID, _ := strconv.Atoi(ctx.Query("event_id"))
			limit, _ := strconv.Atoi(ctx.Query("limit"))
			tickets, err := common.RecentCheckIns(ctx.Request.Context(), uint(eventID), limit)
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": tickets})
		})
	return g
}
