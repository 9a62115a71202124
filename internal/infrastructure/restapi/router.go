package restapi

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter builds the gin engine with the farm API under /api/v1.
func SetupRouter(farmHandler *FarmHandler, streamHandler *StreamHandler, zapLogger *zap.Logger) *gin.Engine {
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))
	router.Use(ZapLoggerMiddleware(zapLogger))
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	{
		farms := v1.Group("/farms")
		farms.GET("", farmHandler.GetFarmsHandler)
		farms.GET("/length", farmHandler.GetPoolLengthHandler)
		farms.GET("/pid/:pid", farmHandler.GetFarmByPidHandler)
		farms.GET("/pid/:pid/user", farmHandler.GetFarmUserHandler)
		farms.GET("/pid/:pid/price", farmHandler.GetBusdPriceHandler)
		farms.GET("/lp/:symbol", farmHandler.GetFarmByLpSymbolHandler)
		farms.GET("/lp/:symbol/price", farmHandler.GetLpTokenPriceHandler)

		v1.GET("/session", farmHandler.GetSessionHandler)
		v1.PUT("/session", farmHandler.PutSessionHandler)
		v1.PUT("/session/flag", farmHandler.PutFlagHandler)

		if streamHandler != nil {
			v1.GET("/stream", streamHandler.ServeStream)
		}
	}

	return router
}
