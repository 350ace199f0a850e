package cli

func regCommands() {
	//Root
	rootCmd.AddCommand(daemonCmd)
}
