package restapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"farm_poller/internal/app/port"
	"farm_poller/internal/app/session"
	"farm_poller/internal/domain/entity"
)

// SessionController is the mutable session the API exposes.
type SessionController interface {
	Current() session.Snapshot
	SetChainContext(c entity.ChainContext) error
	SetFarmFlag(v entity.FlagVariant)
}

// APIError is the body of every non-2xx response.
type APIError struct {
	Error string `json:"error"`
}

// PriceResponse carries a single BUSD price.
type PriceResponse struct {
	ChainID uint64 `json:"chainId"`
	Price   string `json:"price"`
}

// FarmHandler serves read-only projections of the snapshot cache.
type FarmHandler struct {
	reader  port.SnapshotReader
	session SessionController
	logger  port.Logger
}

// NewFarmHandler creates a new FarmHandler.
func NewFarmHandler(reader port.SnapshotReader, sess SessionController, logger port.Logger) *FarmHandler {
	return &FarmHandler{
		reader:  reader,
		session: sess,
		logger:  logger.With("component", "farm_handler"),
	}
}

// chainContext resolves chainId and account from the query, falling back to
// the current session. The session account only applies to the session chain.
func (h *FarmHandler) chainContext(c *gin.Context) (entity.ChainContext, error) {
	cc := h.session.Current().Context
	if raw := c.Query("chainId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return entity.ChainContext{}, errors.New("chainId must be an unsigned integer")
		}
		if id != cc.ChainID {
			cc.Account = ""
		}
		cc.ChainID = id
	}
	if acc, ok := c.GetQuery("account"); ok {
		cc.Account = acc
	}
	if !cc.HasChain() {
		return entity.ChainContext{}, entity.ErrUnknownChain
	}
	return cc.Normalized(), nil
}

func pidParam(c *gin.Context) (int, error) {
	pid, err := strconv.Atoi(c.Param("pid"))
	if err != nil || pid < 0 {
		return 0, errors.New("pid must be a non-negative integer")
	}
	return pid, nil
}

func abortWithError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, entity.ErrFarmNotFound) {
		status = http.StatusNotFound
	}
	c.AbortWithStatusJSON(status, APIError{Error: err.Error()})
}

// GetFarmsHandler returns the FarmsState for a chain and optional account.
func (h *FarmHandler) GetFarmsHandler(c *gin.Context) {
	cc, err := h.chainContext(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.reader.Farms(cc.ChainID, cc.Account))
}

// GetPoolLengthHandler returns the MasterChef pool count.
func (h *FarmHandler) GetPoolLengthHandler(c *gin.Context) {
	cc, err := h.chainContext(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chainId": cc.ChainID, "poolLength": h.reader.PoolLength(cc.ChainID)})
}

// GetFarmByPidHandler returns one farm by pid.
func (h *FarmHandler) GetFarmByPidHandler(c *gin.Context) {
	cc, err := h.chainContext(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	pid, err := pidParam(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	farm, ok := h.reader.FarmFromPid(cc.ChainID, pid)
	if !ok {
		abortWithError(c, entity.ErrFarmNotFound)
		return
	}
	c.JSON(http.StatusOK, farm)
}

// GetFarmUserHandler returns the account's position in a farm; zero amounts
// when nothing is known.
func (h *FarmHandler) GetFarmUserHandler(c *gin.Context) {
	cc, err := h.chainContext(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !cc.HasAccount() {
		abortWithError(c, entity.ErrInvalidAccount)
		return
	}
	pid, err := pidParam(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.reader.FarmUser(cc.ChainID, cc.Account, pid))
}

// GetBusdPriceHandler returns the farm token's BUSD price.
func (h *FarmHandler) GetBusdPriceHandler(c *gin.Context) {
	cc, err := h.chainContext(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	pid, err := pidParam(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, PriceResponse{ChainID: cc.ChainID, Price: h.reader.BusdPriceFromPid(cc.ChainID, pid).String()})
}

// GetFarmByLpSymbolHandler returns one farm by lp symbol.
func (h *FarmHandler) GetFarmByLpSymbolHandler(c *gin.Context) {
	cc, err := h.chainContext(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	farm, ok := h.reader.FarmFromLpSymbol(cc.ChainID, c.Param("symbol"))
	if !ok {
		abortWithError(c, entity.ErrFarmNotFound)
		return
	}
	c.JSON(http.StatusOK, farm)
}

// GetLpTokenPriceHandler returns the BUSD value of one lp token.
func (h *FarmHandler) GetLpTokenPriceHandler(c *gin.Context) {
	cc, err := h.chainContext(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	tokenOnly, _ := strconv.ParseBool(c.DefaultQuery("tokenOnly", "false"))
	price := h.reader.LpTokenPrice(cc.ChainID, c.Param("symbol"), tokenOnly)
	c.JSON(http.StatusOK, PriceResponse{ChainID: cc.ChainID, Price: price.String()})
}

// SessionRequest switches chain and account.
type SessionRequest struct {
	ChainID uint64 `json:"chainId"`
	Account string `json:"account"`
}

// FlagRequest switches the farm feature flag.
type FlagRequest struct {
	Variant string `json:"variant" binding:"required"`
}

// GetSessionHandler returns the current chain context and flag.
func (h *FarmHandler) GetSessionHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Current())
}

// PutSessionHandler replaces the chain context.
func (h *FarmHandler) PutSessionHandler(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, err)
		return
	}
	if err := h.session.SetChainContext(entity.ChainContext{ChainID: req.ChainID, Account: req.Account}); err != nil {
		abortWithError(c, err)
		return
	}
	h.logger.Info("Session chain context updated", "chain_id", req.ChainID, "account", req.Account)
	c.JSON(http.StatusOK, h.session.Current())
}

// PutFlagHandler replaces the feature-flag variant.
func (h *FarmHandler) PutFlagHandler(c *gin.Context) {
	var req FlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, err)
		return
	}
	variant := entity.FlagVariant(strings.ToLower(strings.TrimSpace(req.Variant)))
	h.session.SetFarmFlag(variant)
	h.logger.Info("Farm flag updated", "variant", variant)
	c.JSON(http.StatusOK, h.session.Current())
}
