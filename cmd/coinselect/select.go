package main

import (
	"github.com/spf13/cobra"
	"github.com/vulpemventures/coinselect/internal/config"
	"github.com/vulpemventures/coinselect/internal/core/application"
	"github.com/vulpemventures/coinselect/internal/core/domain"
)

var (
	strategyName string
	targetAmount uint64
	feeRateStr   string
	dustAmount   uint64
	outpoints    []string

	selectCmd = &cobra.Command{
		Use:   "select",
		Short: "select utxos with a coin selection strategy",
		Long: "this command lets you select the utxos to spend to cover the " +
			"given amount plus fees, with one of the supported strategies. " +
			"The utxo set is not modified",
		RunE: selectUtxos,
	}
	coinControlCmd = &cobra.Command{
		Use:   "coin-control",
		Short: "spend exactly the given utxos",
		Long: "this command lets you spend exactly the given utxos, bypassing " +
			"any strategy, and returns fee and change for the given amount",
		RunE: selectCoinControl,
	}
	strategiesCmd = &cobra.Command{
		Use:   "strategies",
		Short: "list supported strategies",
		Long:  "this command returns the list of supported coin selection strategies",
		RunE:  listStrategies,
	}
)

func init() {
	selectCmd.Flags().StringVarP(
		&strategyName, "strategy", "s", "",
		"coin selection strategy (defaults to the configured one)",
	)
	for _, cmd := range []*cobra.Command{selectCmd, coinControlCmd} {
		cmd.Flags().Uint64VarP(
			&targetAmount, "amount", "a", 0, "target amount in sats",
		)
		cmd.Flags().StringVarP(
			&feeRateStr, "fee-rate", "f", "",
			"fee rate in sats/vbyte (defaults to the configured one)",
		)
		cmd.Flags().Uint64VarP(
			&dustAmount, "dust", "d", 0,
			"dust threshold in sats (defaults to the configured one)",
		)
		cmd.MarkFlagRequired("amount")
	}
	coinControlCmd.Flags().StringSliceVarP(
		&outpoints, "outpoint", "o", nil, "outpoint (txid:vout) of a utxo to spend",
	)
	coinControlCmd.MarkFlagRequired("outpoint")
}

func selectUtxos(cmd *cobra.Command, _ []string) error {
	strategy, err := config.GetDefaultStrategy()
	if err != nil {
		return err
	}
	if strategyName != "" {
		if strategy, err = domain.ParseStrategy(strategyName); err != nil {
			return err
		}
	}
	opts, err := selectionOpts(cmd)
	if err != nil {
		return err
	}

	manager, appCfg, cleanup, err := getUtxoManager(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	opts.EventSink = appCfg.EventSink()
	result, err := manager.SelectUtxos(cmd.Context(), targetAmount, strategy, opts)
	if err != nil {
		return err
	}
	return printJSON(toSelectionView(result, strategy.String()))
}

func selectCoinControl(cmd *cobra.Command, _ []string) error {
	keys, err := parseOutpoints(outpoints)
	if err != nil {
		return err
	}
	opts, err := selectionOpts(cmd)
	if err != nil {
		return err
	}

	manager, appCfg, cleanup, err := getUtxoManager(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	opts.EventSink = appCfg.EventSink()
	result, err := manager.SelectCoinControl(cmd.Context(), keys, targetAmount, opts)
	if err != nil {
		return err
	}
	return printJSON(toSelectionView(result, "coin-control"))
}

func listStrategies(_ *cobra.Command, _ []string) error {
	defaultStrategy, err := config.GetDefaultStrategy()
	if err != nil {
		return err
	}

	strategies := make([]string, 0, len(domain.Strategies()))
	for _, s := range domain.Strategies() {
		strategies = append(strategies, s.String())
	}
	return printJSON(map[string]interface{}{
		"strategies": strategies,
		"default":    defaultStrategy.String(),
	})
}

func selectionOpts(cmd *cobra.Command) (application.SelectionOpts, error) {
	opts := application.SelectionOpts{}
	if cmd.Flags().Changed("fee-rate") {
		feeRate, err := domain.ParseFeeRate(feeRateStr)
		if err != nil {
			return application.SelectionOpts{}, err
		}
		opts.FeeRate = &feeRate
	}
	if cmd.Flags().Changed("dust") {
		dust := dustAmount
		opts.DustAmount = &dust
	}
	return opts, nil
}
