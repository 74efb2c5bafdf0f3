package session

import (
	"math/rand"
	"strings"
)

// lands are the backdrop descriptions, indexed by the land selection.
var lands = [ChoiceCount]string{
	"a broken wagon at a fork in the road",
	"a mine shaft entrance",
	"distant mountain swamplands",
	"a cabin by a stream",
}

// headlines pair with the deed index (weapon archetype x companion deed).
var headlines = [16]string{
	"High Noon Reckoning",
	"The Town's Shield",
	"Whiskey & Bruised Knuckles",
	"No Mercy, No Innocents",
	"The Mayor's Losing Hand",
	"A Fortune for the Folk",
	"The Serpent's Swindle",
	"The Gunpowder Gambit",
	"The Tycoon's Treasure",
	"The Marshal's Keys",
	"A Jewel for Justice",
	"The Great Candy Caper",
	"Mansion in Flames",
	"A Fiery Tune",
	"Ashes for my Enemies",
	"Christmas Inferno",
}

const defaultHeadline = "A Legend is Born"

// captions holds four poster variants per deed. {land} is substituted with
// the selected backdrop.
var captions = [16][4]string{
	{ // Gunslinger - High Noon
		"WANTED: DEAD OR ALIVE\nFor settling disputes the old-fashioned way.\nLast seen at high noon near {land}.\nAnswers only to their own code.",
		"WANTED FOR DUELING\nThis gunslinger's draw is faster than a lightning strike.\nLeft a rival staring at the sun near {land}.\nDo not challenge.",
		"REWARD OFFERED\nFor the duelist who settles all disputes at high noon.\nTheir legend was forged in the dust near {land}.\nApproach only to pay respects, or a price.",
		"BE ADVISED\nThis individual solves all arguments with cold steel.\nAnother notch was added to their pistol near {land}.\nNegotiation is not an option.",
	},
	{ // Gunslinger - Protector
		"WANTED FOR VIGILANTISM\nKnown to appoint themself judge, jury, and protector.\nLast seen defending townsfolk near {land}.\nConsiders the law a suggestion.",
		"SOUGHT FOR QUESTIONING\nRegarding interference with outlaw business.\nThis do-gooder is a thorn in the side of \"progress\".\nLast seen near {land}.",
		"NOTICE: THE TOWN'S GUARDIAN\nStands between the innocent and the wicked.\nLast seen making the roads safe near {land}.\n A hero to many, a target for some.",
		"FOR HIRE: ONE GUN\nWill stand against any threat for the right price.\nProvided a service for the folk near {land}.\nTheir aim is true, their conscience debatable.",
	},
	{ // Gunslinger - Brawler
		"APPROACH WITH CAUTION\nWanted for brawling and disorderly conduct.\nPrefers to let their fists do the talking.\nLast seen causing a ruckus near {land}.",
		"WANTED: FOR TAVERN TERROR\nHas a taste for cheap whiskey and expensive fights.\nSettled a disagreement the hard way near {land}.\nKnown to have a mean right hook.",
		"REWARD FOR INFORMATION\nLeading to the arrest of a known instigator.\nTheir temper is shorter than a watered-down drink.\nLast known disturbance was near {land}.",
		"PUBLIC NUISANCE\nThis individual's arguments end in broken bottles.\nTheir knuckles are registered as lethal weapons.\nLast seen starting trouble near {land}.",
	},
	{ // Gunslinger - Ruthless
		"WANTED: RUTHLESS KILLER\nFor crimes against humanity and common decency.\nNo one is safe from their bloodlust.\nLast seen leaving bodies near {land}.",
		"BEWARE THE EXECUTIONER\nThis gunslinger believes in only one verdict: guilty.\nLeft no survivors to tell the tale near {land}.\nShows no mercy, expects none.",
		"REWARD: DEAD OR ALIVE\nThis individual's justice is swift and final.\nTheir reputation for brutality was earned near {land}.\nInnocence is not a concept they recognize.",
		"SOUGHT: FOR MASS MURDER\nWanted for indiscriminate killing.\nLeaves behind only silence and sorrow.\nLast seen dispensing death near {land}.",
	},
	{ // Merchant - Poker
		"WANTED FOR CRIMES OF CUNNING\nThis smooth talker won a town charter in a poker game.\nAll deals should be considered suspect.\nLast known location: {land}.",
		"NOTICE: CHANGE OF OWNERSHIP\nThe town charter was lost in a game of cards.\nThe new proprietor is a known gambler from {land}.\nAll debts are now due to them.",
		"SOUGHT FOR QUESTIONING\nRegarding a suspicious hand of five aces.\nThe former mayor is demanding a recount.\nThe incident occurred near {land}.",
		"REWARD: FOR THE CARD SHARK\nWanted for winning more than just the pot.\nThis high-stakes player now runs the town.\nLast seen shuffling a deck near {land}.",
	},
	{ // Merchant - Charity
		"SOUGHT FOR QUESTIONING\nRegarding suspicious and disruptive charity.\nKnown for upending the local economy.\nLast seen distributing their fortune near {land}.",
		"WANTED: ECONOMIC ANARCHIST\nThis so-called 'benefactor' is devaluing local currency.\nTheir generosity is a threat to the natural order.\nLast seen making it rain near {land}.",
		"BEWARE FALSE PROPHETS\nThis merchant gives with one hand and takes with... well, we're not sure yet.\nTheir motives are unknown.\nLast seen near {land}.",
		"NOTICE OF UNCLAIMED WEALTH\nThis individual is handing out gold like it's candy.\nSuch actions have consequences.\nThe spectacle was witnessed near {land}.",
	},
	{ // Merchant - Snake Oil
		"WANTED FOR FRAUD\nSo slick they could sell a mirage to a man dying of thirst.\nPeddles elixirs of questionable origin.\nLast spotted near {land}.",
		"BEWARE THE SILVER TONGUE\nThis charlatan's promises are as empty as their bottles.\nPulled off their greatest swindle near {land}.\nWill sell you the rope to hang yourself with.",
		"REWARD FOR APPREHENSION\nOf the most notorious con artist in the territories.\nTheir 'miracle cure' is 90% ditch water.\nLast seen fleeing {land}.",
		"PUBLIC WARNING\nDo not buy *anything* from this individual.\nTheir salesmanship is a registered hazard.\nLast seen charming the locals near {land}.",
	},
	{ // Merchant - Gunpowder
		"WANTED: MONOPOLIST\nFor cornering the market on all things that go 'BOOM'.\nThis merchant's ambition is a threat to public safety.\nOperates out of {land}.",
		"DANGEROUS INDIVIDUAL\nControls the flow of gunpowder and lead.\nEffectively holds the entire territory hostage.\nTheir main stockpile is near {land}.",
		"REWARD FOR INFORMATION\nOn the merchant who holds the keys to the armory.\nHe who controls the powder, controls the war.\nHQ rumored to be near {land}.",
		"SOUGHT FOR PRICE GOUGING\nThis merchant has made peace an expensive luxury.\nSells bullets at a premium.\nLast seen counting their money near {land}.",
	},
	{ // Thief - Tycoon
		"WANTED FOR 'REDISTRIBUTION'\nA folk hero to some, a menace to the rich.\nLiberates treasure from the undeserving.\nLast known score occurred near {land}.",
		"REWARD: FOR THE PEOPLE'S THIEF\nStole from the rich to give to... well, themself mostly.\nBut the tycoon deserved it.\nThe heist took place near {land}.",
		"SOUGHT FOR GRAND LARCENY\nTargeted the holdings of a corrupt railroad baron.\nThe stolen goods have not been recovered.\nLast seen celebrating near {land}.",
		"NOTICE: JUSTICE SERVED\nThe so-called 'Tycoon's Treasure' is now in new hands.\nThe perpetrator is a local legend.\nThe act of defiance happened near {land}.",
	},
	{ // Thief - Jailbreak
		"SOUGHT FOR AIDING FUGITIVES\nValues loyalty to their crew above the law.\nOrchestrated a brazen jailbreak near {land}.\nConsidered armed and resourceful.",
		"WANTED: FOR OBSTRUCTION\nThis thief stole the Marshal's keys and his dignity.\nResponsible for releasing known criminals.\nLast seen with their gang near {land}.",
		"REWARD FOR CAPTURE\nOf the mastermind behind the {land} jailbreak.\nMade a mockery of the local law enforcement.\nLoyal, cunning, and dangerous.",
		"BE ADVISED\nA band of outlaws is on the loose.\nThanks to the efforts of one very skilled thief.\nThe escape originated near {land}.",
	},
	{ // Thief - Jewel Return
		"WANTED... FOR RETURNING STOLEN GOODS?\nAn unpredictable agent of justice.\nTheir strange reversal of fortune took place near {land}.\nMotive: Unknown.",
		"SOUGHT FOR QUESTIONING\nRegarding a case of reverse-robbery.\nThis thief has a peculiar moral code.\nThe incident baffled deputies near {land}.",
		"BEWARE THE GHOST THIEF\nSteals from the guilty, returns to the innocent.\nTheir latest act of strange justice occurred near {land}.\nOperates outside of any known law.",
		"NOTICE: A CONSCIENCE\nEven a thief can right a wrong.\nA stolen jewel was mysteriously returned near {land}.\nThis individual is an enigma.",
	},
	{ // Thief - Candy
		"WANTED FOR PETTY CRIMES\nThis villain's depravity knows no bounds.\nTheir last heist involved candy and babies.\nApprehend for the sake of decency near {land}.",
		"SOUGHT FOR QUESTIONING\nRegarding a sudden, tragic shortage of lollipops.\nThe suspect was last seen fleeing {land}.\nConsidered sticky-fingered and shameless.",
		"CRIME OF THE CENTURY\nWanted for a brazen daylight candy robbery.\nThe victims were unarmed and mostly toothless.\nLast seen with a bulging sack near {land}.",
		"NOTICE: A VILLAIN AMONG US\nThis fiend stooped so low as to steal from a child.\nThe great candy caper of {land} will not be forgotten.\nThere is no honor among this thief.",
	},
	{ // Arsonist - Mansion
		"WANTED FOR ARSON\nDispenses fiery justice against corrupt officials.\nThe mayor's mansion near {land} was their last target.\nBelieved to be armed with kerosene.",
		"REWARD FOR INFORMATION\nOn the firebrand who lit up the mayor's night.\nSent a very clear, very warm message to the establishment.\nThe blaze was started near {land}.",
		"SOUGHT: POLITICAL PYRO\nUses flames to make their political statements.\nThe target was a symbol of corruption.\nLast seen watching the glow from {land}.",
		"NOTICE: A CLEANSING FIRE\nThe mayor's ill-gotten gains went up in smoke.\nThe people's justice was delivered by matchstick.\nThe act took place near {land}.",
	},
	{ // Arsonist - Piano
		"WANTED: PYROMANIAC\nAn artist whose medium is chaos and flame.\nLast seen turning a saloon piano into a bonfire.\nSpotted admiring their work near {land}.",
		"SOUGHT FOR VANDALISM\nThis fiend gave a beloved piano a fiery send-off.\nThe music died in a blaze of glory near {land}.\nMotive appears to be pure, chaotic joy.",
		"BEWARE THE FIREBUG\nFinds beauty in the blaze, and music in the crackle.\nTheir latest masterpiece was a piano near {land}.\nDo not leave flammable objects unattended.",
		"REWARD: FOR THE SILENCER\nWanted for interrupting a perfectly good tune with fire.\nThe saloon regulars are not pleased.\nThe incident occurred near {land}.",
	},
	{ // Arsonist - Factory
		"WANTED: GANG WARFARE\nThis pyromaniac escalated a feud to devastating levels.\nBurned a rival gang's hideout to the ground near {land}.\nConsidered extremely dangerous.",
		"SOUGHT FOR MASS ARSON\nSettled old scores with fire and vengeance.\nLeft nothing but ashes of their enemies near {land}.\nThis individual takes no prisoners.",
		"REWARD FOR CAPTURE\nOf the firebrand who eliminated an entire gang.\nTheir rivals' screams were heard throughout {land}.\nJustice or murder? The jury's still out.",
		"BEWARE: GANG ELIMINATOR\nThis arsonist doesn't believe in second chances.\nTurned a turf war into a funeral pyre near {land}.\nTheir definition of 'victory' is total annihilation.",
	},
	{ // Arsonist - Christmas Tree
		"WANTED FOR HOLIDAY HOOLIGANISM\nThis yuletide troublemaker lit up the season a bit too literally.\nTurned the town Christmas tree into the world's largest candle near {land}.\nSuspect may be a Grinch in disguise.",
		"NOTICE: CHRISTMAS CANCELLED\nDue to one individual's overzealous interpretation of 'holiday lights'.\nThe town tree became a festive inferno near {land}.\nSanta has been notified and is NOT pleased.",
		"SOUGHT: THE HOLIDAY ARSONIST\nRuined Christmas faster than finding coal in your stocking.\nWitnesses report cackling and possible eggnog involvement near {land}.\nMay have been singing carols while fleeing.",
		"REWARD FOR THE SCROOGE\nWho confused 'deck the halls' with 'burn them all'.\nThe great Christmas tree disaster of {land} will go down in infamy.\nChildren are crying. The mayor is crying. Even the ornaments are crying.",
	},
}

var defaultCaptions = [4]string{
	"WANTED: FOR REASONS UNKNOWN\nThis mysterious figure was last seen near {land}.\nTheir motives are unclear.\nApproach with extreme caution.",
	"SOUGHT: THE ENIGMA\nA shadow that passed through {land}.\nTheir purpose is a mystery, their methods unpredictable.\nReport any strange occurrences.",
	"REWARD: FOR IDENTIFICATION\nOf a person of interest spotted near {land}.\nTheir story is unwritten, their legend just begun.\nDo not approach.",
	"BE ADVISED\nAn unknown agent is operating in the area.\nTheir last known position was {land}.\nAssume nothing. Question everything.",
}

// StoryFor renders the poster text for a selection triple. The deed index
// combines the weapon archetype with the companion deed; the land selection
// picks the backdrop. variant chooses between the four caption phrasings for
// a deed and is the only non-derived input, so the function stays pure.
func StoryFor(weapon, land, companion, variant int) (story, headline string) {
	landDesc := "the empty wilderness"
	if land >= 0 && land < len(lands) {
		landDesc = lands[land]
	}

	variant = ((variant % 4) + 4) % 4
	deed := weapon*ChoiceCount + companion

	caption := defaultCaptions[variant]
	headline = defaultHeadline
	if weapon >= 0 && companion >= 0 && deed < len(captions) {
		caption = captions[deed][variant]
		headline = headlines[deed]
	}
	return strings.ReplaceAll(caption, "{land}", landDesc), headline
}

// GenerateStory fills StoryText and Headline from the selections, choosing
// one of the four caption variants at random. All three selections must be
// made first.
func (s *Session) GenerateStory() error {
	if s.Weapon == nil || s.Land == nil || s.Companion == nil {
		return ErrMissingField
	}
	story, headline := StoryFor(*s.Weapon, *s.Land, *s.Companion, rand.Intn(4))
	s.StoryText = &story
	s.Headline = &headline
	return nil
}
