package server

const (
	greeting        = "Welcome to the Greenhouse Server!"
	unknownCommand  = "Unknown command. Type 'help' for commands."
	ghNotFound      = "Greenhouse not found."
	monitorStopHint = "Type 'stop' to stop monitoring."
)

var startHelp = []string{
	"Commands:",
	"'greenhouses' - Open the greenhouse menu.",
	"'subscribe' - Get notified when a greenhouse is created.",
	"'saveserverstate' - Save every greenhouse to disk.",
	"'speedup -<1|2>' - Make the simulation clock faster.",
	"'slowdown -<1|2>' - Make the simulation clock slower.",
	"'clockrate' - Show the current clock rate.",
	"'help' - Show this message.",
	"'exit' - Close the connection.",
}

var listHelp = []string{
	"Type the greenhouse ID to view details. E.g., '0' for Greenhouse 0.",
	"'newgreenhouse' - Create a new greenhouse.",
	"'listgreenhouses' - Show the list of greenhouses.",
	"'back' - Return to the previous menu.",
}

var detailHelp = []string{
	"Commands:",
	"'addsensor' For further info, use 'man -addsensor'.",
	"'addappliance' For further info, use 'man -addappliance'.",
	"'removesensor' For further info, use 'man -removesensor'.",
	"'removeappliance' For further info, use 'man -removeappliance'.",
	"'sensorreading' For further info, use 'man -sensorreading'.",
	"'appliancereading' For further info, use 'man -appliancereading'.",
	"'toggleappliance' For further info, use 'man -toggleappliance'.",
	"'newtemptarget' For further info, use 'man -newtemptarget'.",
	"'newhumiditytarget' For further info, use 'man -newhumiditytarget'.",
	"'monitor' - Start monitoring all sensors data in real-time.",
	"'help' - Show help message.",
	"'back' - Return to the previous menu.",
}

const detailCommands = "Commands: 'help' | 'addsensor' | 'removesensor' | 'sensorreading' | 'addappliance' | " +
	"'removeappliance' | 'appliancereading' | 'toggleappliance' | 'monitor' | 'newtemptarget' | 'newhumiditytarget' | 'back'"

// manual is the text printed by "man -<command>". The trailing -<greenhouseId>
// is optional everywhere and defaults to the open greenhouse.
var manual = map[string][]string{
	"addsensor": {
		"addsensor -<type> [<type>...] [-<greenhouseId>]",
		"Adds one sensor per type. Types: temperaturesensor, humiditysensor, lightsensor,",
		"moisturesensor, phsensor, nitrogensensor. Example: addsensor -temperaturesensor phsensor",
	},
	"removesensor": {
		"removesensor -<sensorId> [-<greenhouseId>]",
		"Removes a sensor. Its id is never reused. Example: removesensor -0",
	},
	"addappliance": {
		"addappliance -<type> [<type>...] [-<greenhouseId>]",
		"Adds one appliance per type. Types: aircondition, lamp, humidifier, sprinkler, fertilizer, limer.",
		"Example: addappliance -lamp sprinkler",
	},
	"removeappliance": {
		"removeappliance -<applianceId> [-<greenhouseId>]",
		"Removes an appliance. Example: removeappliance -1",
	},
	"sensorreading": {
		"sensorreading -<sensorId|a> [-<greenhouseId>]",
		"Shows the latest reading of one sensor, or of all of them with 'a'. Example: sensorreading -a",
	},
	"appliancereading": {
		"appliancereading -<applianceId|a> [-<greenhouseId>]",
		"Shows the state of one appliance, or of all of them with 'a'. Example: appliancereading -0",
	},
	"toggleappliance": {
		"toggleappliance -<applianceId> [-<greenhouseId>]",
		"Actuates an appliance. Air appliances switch on or off; sprinkler waters, fertilizer",
		"fertilizes and limer limes the soil once. Example: toggleappliance -2",
	},
	"newtemptarget": {
		"newtemptarget -<celsius> [-<greenhouseId>]",
		"Sets the target temperature. Use a double dash for negative values: newtemptarget --5",
	},
	"newhumiditytarget": {
		"newhumiditytarget -<0..1> [-<greenhouseId>]",
		"Sets the target relative humidity as a fraction. Example: newhumiditytarget -0.7",
	},
	"monitor": {
		"monitor [-<greenhouseId>]",
		"Streams every sensor of the greenhouse on each clock tick until 'stop' or 'back'.",
	},
}
