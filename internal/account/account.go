package account

import (
	"context"

	"smarttrading/internal/credential"
	"smarttrading/internal/dao"
	"smarttrading/internal/model"
	"smarttrading/pkg/logger"

	"github.com/goccy/go-json"
)

// 账户解析：把订阅账户换算成执行上下文
// 凭证解密失败的账户照常下发，留给执行层按"缺凭证"记录终态，保证每个账户都有处理记录
type Service struct {
	accounts *dao.AccountDao
	creds    *credential.Store
}

func NewService(accounts *dao.AccountDao, creds *credential.Store) *Service {
	return &Service{accounts: accounts, creds: creds}
}

// ResolveContexts 查出订阅了策略的账户并构建执行上下文
func (s *Service) ResolveContexts(ctx context.Context, strategy string) ([]model.ExecutionContext, error) {
	accounts, err := s.accounts.ListByStrategy(ctx, strategy)
	if err != nil {
		return nil, err
	}

	contexts := make([]model.ExecutionContext, 0, len(accounts))
	for _, a := range accounts {
		ec := model.ExecutionContext{
			AccountID:      a.AccountID,
			Strategy:       strategy,
			Exchange:       a.Exchange,
			Role:           a.Role,
			PaymentActive:  a.PaymentActive,
			StrategyActive: containsStrategy(a.Strategies, strategy),
			Leverage:       a.Leverage,
			FixedNotional:  a.FixedNotional,
			PartialTP:      a.PartialTP,
			AllowSymbols:   decodeList(a.AllowSymbols),
			DenySymbols:    decodeList(a.DenySymbols),
		}
		cred, err := s.creds.Decrypt(a)
		if err != nil {
			// 凭证坏了不中断其他账户，该账户会以"缺凭证"终止
			logger.Errorf("decrypt credential failed, account=%s: %v", a.AccountID, err)
		} else {
			ec.Credential = cred
		}
		contexts = append(contexts, ec)
	}
	return contexts, nil
}

func decodeList(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	return list
}

func containsStrategy(raw []byte, strategy string) bool {
	for _, s := range decodeList(raw) {
		if s == strategy {
			return true
		}
	}
	return false
}
