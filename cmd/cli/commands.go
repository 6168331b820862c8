package main

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func pricesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "price <route> <service>",
		Short: "Quote the retail price of a number",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/prices/%s/%s", url.PathEscape(args[0]), url.PathEscape(args[1]))
			data, err := newAPIClient(opts).get(cmd.Context(), path)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
}

func rentalsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rentals",
		Short: "Rent and manage numbers",
	}

	var quoted, quoteToken string
	acquire := &cobra.Command{
		Use:   "acquire <route> <service>",
		Short: "Rent a number for a service",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"route": args[0], "service": args[1]}
			if quoted != "" {
				price, err := decimal.NewFromString(quoted)
				if err != nil {
					return fmt.Errorf("invalid --quoted-price: %w", err)
				}
				body["quoted_price"] = price
			}
			if quoteToken != "" {
				body["quote_token"] = quoteToken
			}
			data, err := newAPIClient(opts).post(cmd.Context(), "/api/v1/rentals", body)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	acquire.Flags().StringVar(&quoted, "quoted-price", "", "Highest price the customer accepts")
	acquire.Flags().StringVar(&quoteToken, "quote-token", "", "Token returned by the price command; locks in its price")

	var accountID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List active rentals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/rentals"
			if accountID != "" {
				path += "?account_id=" + url.QueryEscape(accountID)
			}
			data, err := newAPIClient(opts).get(cmd.Context(), path)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	list.Flags().StringVar(&accountID, "account", "", "Account to list (admin only)")

	get := &cobra.Command{
		Use:   "get <rental-id>",
		Short: "Show a rental",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newAPIClient(opts).get(cmd.Context(), "/api/v1/rentals/"+url.PathEscape(args[0]))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}

	cancel := &cobra.Command{
		Use:   "cancel <rental-id>",
		Short: "Cancel a rental and refund it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/rentals/" + url.PathEscape(args[0]) + "/cancel"
			data, err := newAPIClient(opts).post(cmd.Context(), path, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}

	cmd.AddCommand(acquire, list, get, cancel)
	return cmd
}

func walletCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Inspect wallet balances and history",
	}

	var accountID string
	balances := &cobra.Command{
		Use:   "balances",
		Short: "Show both wallet balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newAPIClient(opts).get(cmd.Context(), walletPath("/api/v1/wallet", accountID, 0))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}

	var limit int
	transactions := &cobra.Command{
		Use:   "transactions",
		Short: "List wallet postings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newAPIClient(opts).get(cmd.Context(), walletPath("/api/v1/wallet/transactions", accountID, limit))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	transactions.Flags().IntVar(&limit, "limit", 50, "Maximum postings to return")

	cmd.PersistentFlags().StringVar(&accountID, "account", "", "Account to inspect (admin only)")
	cmd.AddCommand(balances, transactions)
	return cmd
}

func walletPath(base, accountID string, limit int) string {
	q := url.Values{}
	if accountID != "" {
		q.Set("account_id", accountID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if len(q) == 0 {
		return base
	}
	return base + "?" + q.Encode()
}

func adminCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative operations",
	}

	accounts := &cobra.Command{
		Use:   "accounts",
		Short: "Manage accounts",
	}

	var isAdmin bool
	create := &cobra.Command{
		Use:   "create <email>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"email": args[0], "is_admin": isAdmin}
			data, err := newAPIClient(opts).post(cmd.Context(), "/api/v1/admin/accounts", body)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	create.Flags().BoolVar(&isAdmin, "admin", false, "Grant admin rights")

	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/admin/accounts?limit=%d&offset=%d", limit, offset)
			data, err := newAPIClient(opts).get(cmd.Context(), path)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "Page size")
	list.Flags().IntVar(&offset, "offset", 0, "Page offset")

	get := &cobra.Command{
		Use:   "get <account-id>",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newAPIClient(opts).get(cmd.Context(), "/api/v1/admin/accounts/"+url.PathEscape(args[0]))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}

	var reference string
	deposit := &cobra.Command{
		Use:   "deposit <account-id> <currency> <amount>",
		Short: "Credit a wallet from a funding rail",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("invalid amount: %w", err)
			}
			body := map[string]any{"currency": args[1], "amount": amount, "reference": reference}
			path := "/api/v1/admin/accounts/" + url.PathEscape(args[0]) + "/deposits"
			data, err := newAPIClient(opts).post(cmd.Context(), path, body)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	deposit.Flags().StringVar(&reference, "reference", "", "Funding rail reference")

	block := blockCmd(opts, "block", "Stop an account from renting numbers")
	unblock := blockCmd(opts, "unblock", "Allow a blocked account to rent again")

	accounts.AddCommand(create, list, get, deposit, block, unblock)

	var ttl string
	delegate := &cobra.Command{
		Use:   "delegate <account-id>",
		Short: "Issue a token acting as another account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"account_id": args[0]}
			if ttl != "" {
				body["ttl"] = ttl
			}
			data, err := newAPIClient(opts).post(cmd.Context(), "/api/v1/admin/delegations", body)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	delegate.Flags().StringVar(&ttl, "ttl", "", "Token lifetime, e.g. 15m")

	cmd.AddCommand(accounts, delegate)
	return cmd
}

func blockCmd(opts *options, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <account-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/admin/accounts/" + url.PathEscape(args[0]) + "/" + action
			data, err := newAPIClient(opts).post(cmd.Context(), path, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
}

func pricingCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pricing",
		Short: "Change markup, exchange rate and price overrides",
	}

	markup := pricingValueCmd(opts, "markup <percent>", "Set the markup added to wholesale costs", "/api/v1/admin/pricing/markup")
	rate := pricingValueCmd(opts, "exchange-rate <rate>", "Set how much NGN one USD buys", "/api/v1/admin/pricing/exchange-rate")

	overrides := &cobra.Command{
		Use:   "override",
		Short: "Fix or release the price of a route/service pair",
	}

	set := &cobra.Command{
		Use:   "set <route> <service> <price>",
		Short: "Fix the USD price of a pair",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			price, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("invalid price: %w", err)
			}
			data, err := newAPIClient(opts).put(cmd.Context(), overridePath(args[0], args[1]), map[string]any{"value": price})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}

	remove := &cobra.Command{
		Use:   "delete <route> <service>",
		Short: "Return a pair to markup pricing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newAPIClient(opts).delete(cmd.Context(), overridePath(args[0], args[1]))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}

	overrides.AddCommand(set, remove)
	cmd.AddCommand(markup, rate, overrides)
	return cmd
}

func pricingValueCmd(opts *options, use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("invalid value: %w", err)
			}
			data, err := newAPIClient(opts).put(cmd.Context(), path, map[string]any{"value": value})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
}

func overridePath(route, service string) string {
	return fmt.Sprintf("/api/v1/admin/pricing/overrides/%s/%s", url.PathEscape(route), url.PathEscape(service))
}

func reconcileCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Check wallet balances against the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newAPIClient(opts).get(cmd.Context(), "/api/v1/admin/reconciliation")
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}

	var limit int
	settle := &cobra.Command{
		Use:   "settle",
		Short: "Charge completed rentals that were never paid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newAPIClient(opts).post(cmd.Context(), "/api/v1/admin/reconciliation/settle", map[string]int{"limit": limit})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	settle.Flags().IntVar(&limit, "limit", 0, "Maximum rentals to settle (0 for the server default)")

	cmd.AddCommand(settle)
	return cmd
}
