package finalizer

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/mantlenetworkio/withdrawal-finalizer/client"
	"github.com/mantlenetworkio/withdrawal-finalizer/config"
	"github.com/mantlenetworkio/withdrawal-finalizer/types"
)

// reconcile determines, for every withdrawal the current iteration
// predicted to fail, whether it was actually finalized by a third party
// (in which case it is marked finalized with the zero-hash sentinel) or
// genuinely failed (in which case its retry counter is bumped). Every
// entry in unsuccessful ends up in exactly one of the two resulting
// slices — never both, never neither.
func reconcile(ctx context.Context, l1Read client.L1ReadClient, sentinels config.NativeAssetSentinels, unsuccessful []types.Withdrawal) (finalizedExternally []types.Withdrawal, genuinelyFailed []types.Withdrawal, err error) {
	if len(unsuccessful) == 0 {
		return nil, nil, nil
	}

	results := make([]bool, len(unsuccessful))
	g, gctx := errgroup.WithContext(ctx)
	for i, w := range unsuccessful {
		i, w := i, w
		g.Go(func() error {
			var (
				finalized bool
				err       error
			)
			if sentinels.IsNativeAsset(w.Sender) {
				finalized, err = l1Read.IsNativeWithdrawalFinalized(gctx, w.L1BatchNumber, w.L2MessageIndex)
			} else {
				finalized, err = l1Read.IsTokenWithdrawalFinalized(gctx, w.L1BatchNumber, w.L2MessageIndex)
			}
			if err != nil {
				return fmt.Errorf("checking finalization status of %s: %w", w.Key, err)
			}
			results[i] = finalized
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	for i, w := range unsuccessful {
		if results[i] {
			finalizedExternally = append(finalizedExternally, w)
		} else {
			genuinelyFailed = append(genuinelyFailed, w)
		}
	}
	return finalizedExternally, genuinelyFailed, nil
}
