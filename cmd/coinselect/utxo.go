package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vulpemventures/coinselect/internal/core/application"
	"github.com/vulpemventures/coinselect/internal/core/domain"
)

var (
	utxoValue         uint64
	utxoConfirmations uint32
	utxoIsChange      bool
	utxoAddress       string
	utxoScript        string
	utxoAccount       string
	spendableOnly     bool

	utxoAddCmd = &cobra.Command{
		Use:   "add <txid:vout>",
		Short: "add a utxo to the set",
		Long: "this command lets you add a new utxo to the set, utxos already " +
			"in the set are ignored",
		Args: cobra.ExactArgs(1),
		RunE: utxoAdd,
	}
	utxoRemoveCmd = &cobra.Command{
		Use:   "remove <txid:vout>...",
		Short: "remove one or more utxos from the set",
		Long: "this command lets you remove spent or evicted utxos from the set, " +
			"unknown ones are ignored",
		Args: cobra.MinimumNArgs(1),
		RunE: utxoRemove,
	}
	utxoFreezeCmd = &cobra.Command{
		Use:   "freeze <txid:vout>...",
		Short: "freeze one or more utxos",
		Long: "this command lets you exclude one or more utxos from coin " +
			"selection and coin control",
		Args: cobra.MinimumNArgs(1),
		RunE: utxoFreeze,
	}
	utxoUnfreezeCmd = &cobra.Command{
		Use:   "unfreeze <txid:vout>...",
		Short: "unfreeze one or more utxos",
		Long:  "this command lets you make one or more frozen utxos selectable again",
		Args:  cobra.MinimumNArgs(1),
		RunE:  utxoUnfreeze,
	}
	utxoConfirmCmd = &cobra.Command{
		Use:   "confirm <txid:vout>...",
		Short: "update the confirmations of one or more utxos",
		Long: "this command lets you update the number of confirmations of one " +
			"or more utxos",
		Args: cobra.MinimumNArgs(1),
		RunE: utxoConfirm,
	}
	utxoListCmd = &cobra.Command{
		Use:   "list",
		Short: "list utxos",
		Long:  "this command returns the list of all utxos of the set, sorted by outpoint",
		RunE:  utxoList,
	}
	utxoCmd = &cobra.Command{
		Use:   "utxo",
		Short: "manage the utxo set",
		Long: "this command lets you add, remove, freeze, unfreeze, confirm " +
			"and list the utxos of the set",
	}
	balanceCmd = &cobra.Command{
		Use:   "balance",
		Short: "get utxo set balance",
		Long: "this command returns info about the balance of the utxo set " +
			"(confirmed, unconfirmed and frozen)",
		RunE: balance,
	}
)

func init() {
	utxoAddCmd.Flags().Uint64VarP(&utxoValue, "value", "v", 0, "value of the utxo in sats")
	utxoAddCmd.Flags().Uint32VarP(
		&utxoConfirmations, "confirmations", "c", 0, "number of confirmations",
	)
	utxoAddCmd.Flags().BoolVar(
		&utxoIsChange, "change", false, "whether the utxo is change of a wallet tx",
	)
	utxoAddCmd.Flags().StringVarP(
		&utxoAddress, "address", "a", "", "address the utxo is locked to",
	)
	utxoAddCmd.Flags().StringVar(
		&utxoScript, "script", "", "hex encoded prevout script",
	)
	utxoAddCmd.Flags().StringVar(
		&utxoAccount, "account", "", "name of the account owning the utxo",
	)
	utxoAddCmd.MarkFlagRequired("value")

	utxoConfirmCmd.Flags().Uint32VarP(
		&utxoConfirmations, "confirmations", "c", 1, "number of confirmations",
	)

	utxoListCmd.Flags().BoolVar(
		&spendableOnly, "spendable", false, "list only utxos not frozen",
	)

	utxoCmd.AddCommand(
		utxoAddCmd, utxoRemoveCmd, utxoFreezeCmd, utxoUnfreezeCmd,
		utxoConfirmCmd, utxoListCmd,
	)
}

func utxoAdd(cmd *cobra.Command, args []string) error {
	key, err := domain.ParseUtxoKey(args[0])
	if err != nil {
		return err
	}
	script, err := hex.DecodeString(utxoScript)
	if err != nil {
		return fmt.Errorf("invalid script, must be hex encoded")
	}

	manager, _, cleanup, err := getUtxoManager(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	count, err := manager.AddUtxos(cmd.Context(), []domain.Utxo{{
		UtxoKey:       key,
		Value:         utxoValue,
		Confirmations: utxoConfirmations,
		IsChange:      utxoIsChange,
		Address:       utxoAddress,
		Script:        script,
		AccountName:   utxoAccount,
	}})
	if err != nil {
		return err
	}
	return printJSON(map[string]int{"added": count})
}

func utxoRemove(cmd *cobra.Command, args []string) error {
	return updateUtxos(cmd, args, "removed", (*application.UtxoManager).RemoveUtxos)
}

func utxoFreeze(cmd *cobra.Command, args []string) error {
	return updateUtxos(cmd, args, "frozen", (*application.UtxoManager).FreezeUtxos)
}

func utxoUnfreeze(cmd *cobra.Command, args []string) error {
	return updateUtxos(cmd, args, "unfrozen", (*application.UtxoManager).UnfreezeUtxos)
}

func utxoConfirm(cmd *cobra.Command, args []string) error {
	return updateUtxos(
		cmd, args, "confirmed",
		func(
			m *application.UtxoManager, ctx context.Context, keys []domain.UtxoKey,
		) (int, error) {
			return m.ConfirmUtxos(ctx, keys, utxoConfirmations)
		},
	)
}

func utxoList(cmd *cobra.Command, _ []string) error {
	manager, _, cleanup, err := getUtxoManager(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	utxos := manager.GetUtxos()
	if spendableOnly {
		utxos = manager.GetUtxoInfo().Spendable
	}
	return printJSON(map[string]interface{}{"utxos": toUtxoViews(utxos)})
}

func balance(cmd *cobra.Command, _ []string) error {
	manager, _, cleanup, err := getUtxoManager(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	info := manager.GetBalance()
	return printJSON(map[string]uint64{
		"confirmed":   info.Confirmed,
		"unconfirmed": info.Unconfirmed,
		"frozen":      info.Frozen,
		"total":       info.Confirmed + info.Unconfirmed + info.Frozen,
	})
}

func updateUtxos(
	cmd *cobra.Command, args []string, label string,
	update func(
		m *application.UtxoManager, ctx context.Context, keys []domain.UtxoKey,
	) (int, error),
) error {
	keys, err := parseOutpoints(args)
	if err != nil {
		return err
	}

	manager, _, cleanup, err := getUtxoManager(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	count, err := update(manager, cmd.Context(), keys)
	if err != nil {
		return err
	}
	return printJSON(map[string]int{label: count})
}
